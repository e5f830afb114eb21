package client

// SEL iteration. Entries are fixed 16-byte records; partial reads under a
// reservation are only needed when the BMC limits response sizes.

import (
	"context"
	"fmt"

	"github.com/tturner/ipmiq/internal/ipmi/catalog"
	"github.com/tturner/ipmiq/internal/ipmi/protocol"
	"github.com/tturner/ipmiq/internal/ipmi/sel"
)

// SELResult is one iteration item: a parsed entry or the per-record error
// that replaced it.
type SELResult struct {
	RecordID uint16
	Entry    sel.Entry
	Err      error
}

// WalkSEL iterates the event log from the first entry, calling fn per
// entry or per recoverable parse failure. fn returning false stops early.
func (c *Client) WalkSEL(ctx context.Context, fn func(SELResult) bool) error {
	recordID := sel.FirstEntry

	for recordID != sel.LastEntry {
		next, raw, err := c.fetchSELEntry(ctx, recordID)
		if err != nil {
			if code, ok := completionCode(err); ok && code == protocol.CompletionDatapointNotPresent && recordID == sel.FirstEntry {
				// Empty log.
				return nil
			}
			return err
		}

		entry, parseErr := sel.Parse(raw)
		if !fn(SELResult{RecordID: recordID, Entry: entry, Err: parseErr}) {
			return nil
		}

		if next == recordID && next != sel.LastEntry {
			return fmt.Errorf("sel walk: record 0x%04X points at itself", recordID)
		}
		recordID = next
	}
	return nil
}

// SELEntries collects the whole log, separating entries from recoverable
// per-record errors.
func (c *Client) SELEntries(ctx context.Context) ([]sel.Entry, []error, error) {
	var entries []sel.Entry
	var recordErrs []error
	err := c.WalkSEL(ctx, func(r SELResult) bool {
		if r.Err != nil {
			recordErrs = append(recordErrs, fmt.Errorf("record 0x%04X: %w", r.RecordID, r.Err))
			return true
		}
		entries = append(entries, r.Entry)
		return true
	})
	return entries, recordErrs, err
}

func (c *Client) fetchSELEntry(ctx context.Context, recordID uint16) (uint16, []byte, error) {
	data, err := c.Execute(ctx, catalog.GetSELEntry{RecordID: recordID})
	if err == nil {
		chunk, perr := catalog.ParseSELEntryChunk(data)
		if perr != nil {
			return 0, nil, perr
		}
		return chunk.NextRecordID, chunk.Data, nil
	}

	if code, ok := completionCode(err); !ok || code != protocol.CompletionCannotReturnBytes {
		return 0, nil, err
	}
	return c.fetchSELEntryChunked(ctx, recordID)
}

// fetchSELEntryChunked reads one entry in two reserved halves. A
// cancelled reservation re-reserves and restarts the record; three
// consecutive cancellations are fatal.
func (c *Client) fetchSELEntryChunked(ctx context.Context, recordID uint16) (uint16, []byte, error) {
	cancellations := 0

restart:
	data, err := c.Execute(ctx, catalog.ReserveSEL{})
	if err != nil {
		return 0, nil, fmt.Errorf("reserve sel: %w", err)
	}
	reservation, err := catalog.ParseReservationID(data)
	if err != nil {
		return 0, nil, err
	}

	var next uint16
	var raw []byte

	for len(raw) < sel.RecordLength {
		data, err := c.Execute(ctx, catalog.GetSELEntry{
			ReservationID: reservation,
			RecordID:      recordID,
			Offset:        uint8(len(raw)),
			Length:        sel.RecordLength / 2,
		})
		if err != nil {
			if code, ok := completionCode(err); ok && code == protocol.CompletionReservationCancelled {
				cancellations++
				if cancellations >= maxReservationRetries {
					return 0, nil, fmt.Errorf("sel 0x%04X: reservation cancelled %d times: %w",
						recordID, cancellations, err)
				}
				c.log.Debug("sel 0x%04X: reservation cancelled, restarting record", recordID)
				goto restart
			}
			return 0, nil, err
		}

		chunk, err := catalog.ParseSELEntryChunk(data)
		if err != nil {
			return 0, nil, err
		}
		if len(chunk.Data) == 0 {
			return 0, nil, protocol.Parsef("sel 0x%04X: empty chunk at offset %d", recordID, len(raw))
		}
		next = chunk.NextRecordID
		raw = append(raw, chunk.Data...)
	}

	return next, raw[:sel.RecordLength], nil
}

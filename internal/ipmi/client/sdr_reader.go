package client

// SDR repository iteration. Records that exceed one response are fetched
// in chunks under a reservation; a cancelled reservation restarts the
// current record with a fresh one.

import (
	"context"
	"errors"
	"fmt"

	"github.com/tturner/ipmiq/internal/ipmi/catalog"
	"github.com/tturner/ipmiq/internal/ipmi/protocol"
	"github.com/tturner/ipmiq/internal/ipmi/sdr"
)

// maxReservationRetries bounds consecutive reservation cancellations on a
// single record before the iteration fails.
const maxReservationRetries = 3

// sdrChunkSize is the per-request byte count used for chunked record
// reads. Conservative enough for 25-byte LAN limits.
const sdrChunkSize = 24

// SDRResult is one iteration item: a parsed record or the per-record
// error that replaced it. Iteration continues past recoverable errors.
type SDRResult struct {
	RecordID uint16
	Record   sdr.Record
	Err      error
}

// WalkSDRs iterates the SDR repository in record-id order, calling fn for
// each record or recoverable per-record failure. fn returning false stops
// early. Structural failures (transport errors, non-advancing ids) abort
// the walk and are returned.
func (c *Client) WalkSDRs(ctx context.Context, fn func(SDRResult) bool) error {
	recordID := catalog.SDRFirstRecord

	for recordID != catalog.SDRLastRecord {
		next, raw, err := c.fetchSDR(ctx, recordID)
		if err != nil {
			return err
		}

		rec, parseErr := sdr.Parse(raw)
		if errors.Is(parseErr, sdr.ErrStructural) {
			return fmt.Errorf("sdr walk: %w", parseErr)
		}
		result := SDRResult{RecordID: recordID, Record: rec, Err: parseErr}
		if !fn(result) {
			return nil
		}

		if next == recordID && next != catalog.SDRLastRecord {
			return fmt.Errorf("sdr walk: record 0x%04X points at itself", recordID)
		}
		recordID = next
	}
	return nil
}

// SDRs collects the whole repository, separating records from recoverable
// per-record errors.
func (c *Client) SDRs(ctx context.Context) ([]sdr.Record, []error, error) {
	var records []sdr.Record
	var recordErrs []error
	err := c.WalkSDRs(ctx, func(r SDRResult) bool {
		if r.Err != nil {
			recordErrs = append(recordErrs, fmt.Errorf("record 0x%04X: %w", r.RecordID, r.Err))
			return true
		}
		records = append(records, r.Record)
		return true
	})
	return records, recordErrs, err
}

// fetchSDR reads one complete record, first as a single exchange, then in
// reserved chunks when the BMC cannot return it whole.
func (c *Client) fetchSDR(ctx context.Context, recordID uint16) (next uint16, raw []byte, err error) {
	data, err := c.Execute(ctx, catalog.GetSDR{RecordID: recordID})
	if err == nil {
		chunk, perr := catalog.ParseSDRChunk(data)
		if perr != nil {
			return 0, nil, perr
		}
		return chunk.NextRecordID, chunk.Data, nil
	}

	if code, ok := completionCode(err); !ok || code != protocol.CompletionCannotReturnBytes {
		return 0, nil, err
	}
	return c.fetchSDRChunked(ctx, recordID)
}

func (c *Client) fetchSDRChunked(ctx context.Context, recordID uint16) (uint16, []byte, error) {
	cancellations := 0

restart:
	reservation, err := c.reserveSDR(ctx)
	if err != nil {
		return 0, nil, err
	}

	// The 5-byte header tells us the remaining length.
	var next uint16
	var raw []byte
	want := -1

	for want < 0 || len(raw) < want {
		length := uint8(sdrChunkSize)
		data, err := c.Execute(ctx, catalog.GetSDR{
			ReservationID: reservation,
			RecordID:      recordID,
			Offset:        uint8(len(raw)),
			Length:        length,
		})
		if err != nil {
			if code, ok := completionCode(err); ok && code == protocol.CompletionReservationCancelled {
				cancellations++
				if cancellations >= maxReservationRetries {
					return 0, nil, fmt.Errorf("sdr 0x%04X: reservation cancelled %d times: %w",
						recordID, cancellations, err)
				}
				c.log.Debug("sdr 0x%04X: reservation cancelled, restarting record", recordID)
				goto restart
			}
			return 0, nil, err
		}

		chunk, err := catalog.ParseSDRChunk(data)
		if err != nil {
			return 0, nil, err
		}
		next = chunk.NextRecordID
		raw = append(raw, chunk.Data...)

		if want < 0 && len(raw) >= 5 {
			want = 5 + int(raw[4])
		}
		if len(chunk.Data) == 0 {
			return 0, nil, protocol.Parsef("sdr 0x%04X: empty chunk at offset %d", recordID, len(raw))
		}
	}

	return next, raw[:want], nil
}

func (c *Client) reserveSDR(ctx context.Context) (uint16, error) {
	data, err := c.Execute(ctx, catalog.ReserveSDRRepository{})
	if err != nil {
		return 0, fmt.Errorf("reserve sdr repository: %w", err)
	}
	return catalog.ParseReservationID(data)
}

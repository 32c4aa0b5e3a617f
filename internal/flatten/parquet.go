package flatten

import (
	"context"
	"fmt"

	"github.com/franz/sparkify/internal/event"
	"github.com/franz/sparkify/internal/util"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// Play is the Parquet row of a combined record, numeric columns typed
type Play struct {
	Artist        string  `parquet:"name=artist, type=BYTE_ARRAY, convertedtype=UTF8"`
	FirstName     string  `parquet:"name=first_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Gender        string  `parquet:"name=gender, type=BYTE_ARRAY, convertedtype=UTF8"`
	ItemInSession int32   `parquet:"name=item_in_session, type=INT32"`
	LastName      string  `parquet:"name=last_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Length        float32 `parquet:"name=length, type=FLOAT"`
	Level         string  `parquet:"name=level, type=BYTE_ARRAY, convertedtype=UTF8"`
	Location      string  `parquet:"name=location, type=BYTE_ARRAY, convertedtype=UTF8"`
	SessionID     int32   `parquet:"name=session_id, type=INT32"`
	Song          string  `parquet:"name=song, type=BYTE_ARRAY, convertedtype=UTF8"`
	UserID        int32   `parquet:"name=user_id, type=INT32"`
}

// playFrom narrows the ids to int32; event.ParseInt has already rejected
// values outside that range.
func playFrom(t event.Typed) Play {
	return Play{
		Artist:        t.Artist,
		FirstName:     t.FirstName,
		Gender:        t.Gender,
		ItemInSession: int32(t.ItemInSessionN),
		LastName:      t.LastName,
		Length:        t.LengthN,
		Level:         t.Level,
		Location:      t.Location,
		SessionID:     int32(t.SessionIDN),
		Song:          t.Song,
		UserID:        int32(t.UserIDN),
	}
}

// ExportParquet writes the combined file at combinedPath to a Snappy
// compressed Parquet file at parquetPath (always on the OS filesystem).
// A malformed numeric field aborts the export.
func (f *Flattener) ExportParquet(ctx context.Context, combinedPath, parquetPath string) (int, error) {
	in, err := f.fs.Open(combinedPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open combined file: %w", err)
	}
	defer in.Close()

	r, err := event.NewReader(in)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", combinedPath, err)
	}

	fw, err := local.NewLocalFileWriter(parquetPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(Play), 4)
	if err != nil {
		return 0, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	rows := 0
	err = r.Each(func(c event.Combined) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		typed, err := c.Typed()
		if err != nil {
			return err
		}
		if err := pw.Write(playFrom(typed)); err != nil {
			return fmt.Errorf("failed to write parquet row: %w", err)
		}
		rows++
		return nil
	})
	if err != nil {
		pw.WriteStop()
		return rows, err
	}

	if err := pw.WriteStop(); err != nil {
		return rows, fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	util.DebugLog("Exported %d rows to %s", rows, parquetPath)
	return rows, nil
}

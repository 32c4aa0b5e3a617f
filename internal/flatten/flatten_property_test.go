package flatten

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/spf13/afero"
)

// TestProperty_FilterInvariant checks that every raw row with a non-empty
// artist appears exactly once in the combined file, in order, and that the
// row-count difference equals the number of empty-artist rows.
func TestProperty_FilterInvariant(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("combined rows are exactly the non-empty-artist raw rows", prop.ForAll(
		func(artistsA, artistsB []string) bool {
			fs := afero.NewMemMapFs()
			var want []string
			empty := 0

			for i, artists := range [][]string{artistsA, artistsB} {
				rows := make([][]string, 0, len(artists))
				for j, a := range artists {
					song := fmt.Sprintf("song-%d-%d", i, j)
					if a == "" {
						empty++
					} else {
						want = append(want, song)
					}
					rows = append(rows, rawPlay(a, song, i, j, j, "1.0"))
				}
				writeRaw(t, fs, fmt.Sprintf("/in/%d.csv", i), rawHeader, rows...)
			}

			result, err := New(&Config{Fs: fs}).Flatten(context.Background(), "/in", "/combined.csv")
			if err != nil {
				return false
			}
			if result.RowsRead-result.RowsWritten != empty || result.RowsDropped != empty {
				return false
			}

			got := readCombined(t, fs, "/combined.csv")
			if len(got) != len(want) {
				return false
			}
			for i := range got {
				if got[i].Song != want[i] || got[i].Artist == "" {
					return false
				}
			}
			return true
		},
		gen.SliceOf(artistGen()),
		gen.SliceOf(artistGen()),
	))

	properties.TestingRun(t)
}

// artistGen yields an empty artist roughly one time in three
func artistGen() gopter.Gen {
	return gen.AlphaString().Map(func(s string) string {
		if len(s)%3 == 0 {
			return ""
		}
		return s
	})
}

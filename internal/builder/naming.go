package builder

import (
	"encoding/hex"

	"github.com/google/uuid"
)

var contentNamespace = uuid.MustParse("6f1b3c52-9d0e-4b8a-a2f4-1c7e5d93b0a6")

// ContentName derives a library name from the units' filenames, code and symbols.
// A changed unit set gets a new name, so a process never dlopens a rebuilt library
// under a path the loader has already cached.
func ContentName(prefix string, units []*SourceUnit) string {
	var data []byte
	for _, u := range units {
		data = append(data, u.Filename()...)
		data = append(data, 0)
		data = append(data, u.Code...)
		data = append(data, 0)
		for _, s := range u.Symbols {
			data = append(data, s.Name...)
			data = append(data, 0)
		}
	}
	id := uuid.NewSHA1(contentNamespace, data)
	return prefix + hex.EncodeToString(id[:6])
}

package builder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectsFor(t *testing.T) {
	tests := []struct {
		filename string
		want     []string
	}{
		{"calc0.c", []string{"calc0.o"}},
		{"calc0.cpp", []string{"calc0.o"}},
		{"kern-x86.c", []string{"kern-x86.o", "kern_alt-x86.o"}},
		{"kern-x86.cpp", []string{"kern-x86.o", "kern_alt-x86.o"}},
		{"kern-intrinsic.c", []string{"kern-intrinsic.o"}},
		{"kern-intrinsic.cpp", []string{"kern-intrinsic.o"}},
		{"kern-avx2.c", []string{"kern-avx2.o"}},
		{"kern-avx512.cpp", []string{"kern-avx512.o"}},
		{"kern-neon.c", []string{"kern-neon.o"}},
		{"blob.s", []string{"blob.bin"}},
		{"blob.S", []string{"blob.bin"}},
		// unknown dash tags fall through to the plain rule
		{"kern-sse9.c", []string{"kern-sse9.o"}},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, err := ObjectsFor(tt.filename)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestObjectsForUnrecognized(t *testing.T) {
	for _, filename := range []string{"calc.xyz", "calc", "calc.h", "calc.C", ".c", ""} {
		_, err := ObjectsFor(filename)
		require.Error(t, err, filename)
		assert.True(t, errors.Is(err, ErrUnrecognizedSourceSuffix))
		var se *SuffixError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, filename, se.Filename)
	}
}

func TestObjectsForTotalOverKnownVariants(t *testing.T) {
	for _, variant := range KnownVariants() {
		objs, err := ObjectsFor("unit" + variant)
		require.NoError(t, err, variant)
		require.NotEmpty(t, objs)
		if variant == "-x86.c" || variant == "-x86.cpp" {
			assert.Len(t, objs, 2)
		} else {
			assert.Len(t, objs, 1)
		}
	}
}

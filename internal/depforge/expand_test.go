package depforge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func zlibTarget() *Target {
	return &Target{
		Name:         "zlib",
		Version:      "1.3.1",
		Digest:       "38ef96b8dfe510d42707d9c781877914792541133e1870841463bfa73f883e32",
		Filename:     "zlib-{version}.tar.xz",
		SourceSubdir: "zlib-{version}",
		URL:          "https://www.zlib.net/{filename}",
	}
}

func TestExpand_ResolvesNestedPlaceholders(t *testing.T) {
	t.Parallel()

	e := &Expander{}
	got, err := e.Expand(zlibTarget(), "https://www.zlib.net/{filename}")
	require.NoError(t, err)
	require.Equal(t, "https://www.zlib.net/zlib-1.3.1.tar.xz", got)
}

func TestExpand_Cases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		bucket string
		tmpl   string
		want   string
	}{
		{name: "literal", tmpl: "plain-text", want: "plain-text"},
		{name: "empty", tmpl: "", want: ""},
		{name: "name and version", tmpl: "{name}-{version}", want: "zlib-1.3.1"},
		{name: "repeated", tmpl: "{version}/{version}", want: "1.3.1/1.3.1"},
		{name: "bucket", bucket: "assets", tmpl: "gs://{bucket}/{name}/{filename}", want: "gs://assets/zlib/zlib-1.3.1.tar.xz"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			e := &Expander{Bucket: tc.bucket}
			got, err := e.Expand(zlibTarget(), tc.tmpl)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestExpand_IsIdempotentOnResolvedText(t *testing.T) {
	t.Parallel()

	e := &Expander{Bucket: "b"}
	tgt := zlibTarget()
	once, err := e.Expand(tgt, tgt.URL)
	require.NoError(t, err)
	twice, err := e.Expand(tgt, once)
	require.NoError(t, err)
	require.Equal(t, once, twice)
}

func TestExpand_SelfReferentialFilenameHitsLimit(t *testing.T) {
	t.Parallel()

	tgt := zlibTarget()
	tgt.Filename = "x{filename}"

	_, err := (&Expander{}).Expand(tgt, "{filename}")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrRecursionLimit))

	var rl *RecursionLimitError
	require.ErrorAs(t, err, &rl)
	require.Equal(t, maxExpandPasses, rl.Passes)
	require.Equal(t, "{filename}", rl.Template)
}

func TestExpand_UnknownPlaceholderFails(t *testing.T) {
	t.Parallel()

	_, err := (&Expander{}).Expand(zlibTarget(), "{arch}/{name}")
	require.ErrorIs(t, err, ErrRecursionLimit)
}

func TestExpand_BucketRequired(t *testing.T) {
	t.Parallel()

	_, err := (&Expander{}).Expand(zlibTarget(), "gs://{bucket}/{filename}")
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestExpander_Filename(t *testing.T) {
	t.Parallel()

	got, err := (&Expander{}).Filename(zlibTarget())
	require.NoError(t, err)
	require.Equal(t, "zlib-1.3.1.tar.xz", got)
}

package scheme

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fooHandler struct{ n int }

func TestParseGroupKind(t *testing.T) {
	cases := []struct {
		in      string
		want    GroupKind
		wantErr bool
	}{
		{in: "sample.Echo", want: GroupKind{Group: "sample", Kind: "Echo"}},
		{in: "com.example.logic.Login", want: GroupKind{Group: "com.example.logic", Kind: "Login"}},
		{in: "Echo", wantErr: true},
		{in: ".Echo", wantErr: true},
		{in: "sample.", wantErr: true},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			gk, err := ParseGroupKind(c.in)
			if c.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.want, gk)
			assert.Equal(t, c.in, gk.String())
		})
	}
}

func TestScheme(t *testing.T) {
	s := NewScheme()
	calls := 0
	reg := Registration{
		GroupKind: GroupKind{Group: "test", Kind: "Foo"},
		New: func() any {
			calls++
			return &fooHandler{n: calls}
		},
		NoToken: true,
	}
	require.NoError(t, s.AddKnownType(reg))
	assert.Error(t, s.AddKnownType(reg), "duplicate registration must fail")
	assert.Error(t, s.AddKnownType(Registration{New: reg.New}), "empty kind must fail")
	assert.Error(t, s.AddKnownType(Registration{GroupKind: GroupKind{Group: "test", Kind: "Bar"}}), "missing constructor must fail")

	got, ok := s.Lookup("test.Foo")
	require.True(t, ok)
	assert.True(t, got.NoToken)

	h1, err := s.New("test.Foo")
	require.NoError(t, err)
	h2, err := s.New("test.Foo")
	require.NoError(t, err)
	assert.NotSame(t, h1, h2, "every call must get a fresh handler")

	_, err = s.New("test.Missing")
	assert.True(t, errors.Is(err, ErrUnknownType))

	assert.Equal(t, []string{"test.Foo"}, s.KnownTypes())
}

package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs(t *testing.T) {
	cases := map[string]struct {
		kind *Error
		err  error
		want bool
	}{
		"root is itself": {
			kind: ErrNotFound,
			err:  ErrNotFound,
			want: true,
		},
		"wrapped root": {
			kind: ErrNotFound,
			err:  Wrap(ErrNotFound, "progress"),
			want: true,
		},
		"doubly wrapped root": {
			kind: ErrDuplicate,
			err:  Wrap(Wrapf(ErrDuplicate, "policy %d", 1), "init"),
			want: true,
		},
		"different root": {
			kind: ErrNotFound,
			err:  Wrap(ErrDuplicate, "policy"),
			want: false,
		},
		"stdlib error": {
			kind: ErrNotFound,
			err:  fmt.Errorf("not found"),
			want: false,
		},
		"nil kind matches nil": {
			kind: nil,
			err:  nil,
			want: true,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.kind.Is(tc.err))
		})
	}
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "anything"))
}

func TestStdlibCompatibility(t *testing.T) {
	err := fmt.Errorf("crank: %w", ErrInvalidInput.Newf("page %d", 3))
	assert.True(t, stderrors.Is(err, ErrInvalidInput))
	assert.False(t, stderrors.Is(err, ErrNotFound))
	assert.Equal(t, "crank: page 3: invalid input", err.Error())
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, uint32(0), CodeOf(nil))
	assert.Equal(t, uint32(2), CodeOf(Wrap(ErrNotFound, "x")))
	assert.Equal(t, uint32(1), CodeOf(fmt.Errorf("plain")))
	assert.Same(t, ErrDuplicate, Root(Wrap(ErrDuplicate, "x")))
}

func TestIsFollowsUnwrap(t *testing.T) {
	err := fmt.Errorf("list investors: %w", ErrInvalidStream.New("bad amount"))
	assert.True(t, ErrInvalidStream.Is(err))
	assert.Same(t, ErrInvalidStream, Root(err))
	assert.Equal(t, uint32(404), CodeOf(err))
	assert.Equal(t, CategoryValidation, CategoryOf(err))
}

func TestRegisterDuplicatePanics(t *testing.T) {
	assert.Panics(t, func() { Register(2, "again") })
}

func TestRecover(t *testing.T) {
	run := func() (err error) {
		defer Recover(&err)
		panic("boom")
	}
	err := run()
	assert.True(t, ErrPanic.Is(err))
}

func TestCategoryOf(t *testing.T) {
	cases := map[string]struct {
		err  error
		want Category
	}{
		"nil":          {err: nil, want: CategoryNone},
		"window":       {err: Wrap(ErrWindowNotElapsed, "page 0"), want: CategoryGating},
		"page index":   {err: ErrInvalidPageIndex.New("page 4"), want: CategoryGating},
		"base fees":    {err: ErrBaseFeesDetected, want: CategoryContamination},
		"overflow":     {err: Wrap(ErrOverflow, "mul"), want: CategoryArithmetic},
		"locked":       {err: ErrLockedExceedsTotal, want: CategoryArithmetic},
		"quote mint":   {err: ErrInvalidQuoteMint, want: CategoryValidation},
		"too many":     {err: ErrTooManyInvestors, want: CategoryValidation},
		"not found":    {err: ErrNotFound, want: CategoryInternal},
		"plain stdlib": {err: fmt.Errorf("disk full"), want: CategoryInternal},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, CategoryOf(tc.err))
		})
	}
}

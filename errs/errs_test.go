package errs

import (
	"errors"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestWrappedErrorsKeepTheirKind(t *testing.T) {
	err := pkgerrors.Wrapf(&ShortReadError{Offset: 512, Requested: 512, Read: 100}, "reading sector %d", 1)

	var shortRead *ShortReadError
	assert.True(t, errors.As(err, &shortRead))
	assert.Equal(t, int64(512), shortRead.Offset)
	assert.Contains(t, err.Error(), "reading sector 1")

	var formatErr *FormatError
	assert.False(t, errors.As(err, &formatErr))
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "MBR: expected signature 55aa found 0000",
		(&FormatError{Structure: "MBR", Expected: "55aa", Found: "0000"}).Error())
	assert.Equal(t, "compressed clusters not supported", NewUnsupported("compressed clusters").Error())
	assert.Equal(t, "2 index roots", NewIntegrityError("%d index roots", 2).Error())
}

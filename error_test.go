package bdispatch_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/advdv/bdispatch"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestErrorCode(t *testing.T) {
	err1 := bdispatch.NewError(bdispatch.CodeBadRequest, errors.New("foo"))
	require.Equal(t, bdispatch.Code(400), err1.Code())
	require.Equal(t, bdispatch.CodeBadRequest, bdispatch.CodeOf(err1))
	require.Equal(t, "Bad Request: foo", err1.Error())

	require.Equal(t, bdispatch.CodeUnknown, bdispatch.CodeOf(errors.New("bar")))
	require.Equal(t, "Unknown: rab", bdispatch.NewError(900, errors.New("rab")).Error())
}

func TestCodeName(t *testing.T) {
	require.Equal(t, "NotFound", bdispatch.CodeNotFound.Name())
	require.Equal(t, "InternalServerError", bdispatch.CodeInternalServerError.Name())
	require.Equal(t, "RequestedRangeNotSatisfiable", bdispatch.CodeRequestedRangeNotSatisfiable.Name())
	require.Equal(t, "Unknown", bdispatch.Code(900).Name())
}

func TestStatusOf(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", bdispatch.NewError(bdispatch.CodeConflict, errors.New("dup")))
	require.Equal(t, http.StatusConflict, bdispatch.StatusOf(wrapped))
	require.Equal(t, http.StatusInternalServerError, bdispatch.StatusOf(errors.New("plain")))
}

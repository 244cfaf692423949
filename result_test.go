package apix

import (
	"errors"
	"testing"
)

func TestResultSucceed(t *testing.T) {
	res := Succeed(42)

	if !res.OK {
		t.Error("Expected OK")
	}
	if res.Data != 42 {
		t.Errorf("Expected 42, got %d", res.Data)
	}
	if res.Err != nil {
		t.Errorf("Expected nil error, got %v", res.Err)
	}

	data, err := res.Unwrap()
	if err != nil || data != 42 {
		t.Errorf("Unwrap = (%d, %v)", data, err)
	}
}

func TestResultFail(t *testing.T) {
	apiErr := newError(CodeNotFound, "missing", "cid")
	res := Fail[string](apiErr)

	if res.OK {
		t.Error("Expected not OK")
	}
	if res.Err != apiErr {
		t.Errorf("Expected the original error, got %v", res.Err)
	}

	_, err := res.Unwrap()
	if !errors.Is(err, &APIError{Code: CodeNotFound}) {
		t.Errorf("Expected NOT_FOUND from Unwrap, got %v", err)
	}
}

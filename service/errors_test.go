package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"google.golang.org/api/googleapi"
)

func TestRetriable(t *testing.T) {
	i := 0
	ctx := context.Background()
	tim := time.Now()
	err := Retriable(ctx, func() error {
		i++
		return fmt.Errorf("%d", i)
	}, time.Microsecond, 3)

	if time.Since(tim) < 3*time.Microsecond {
		t.Errorf("err: excepted at least 3µs got %v", time.Since(tim))
	}

	if err == nil {
		t.Fatal("err: excepted 3 got nil")
	}
	if err.Error() != "3" {
		t.Error("err: excepted 3 got " + err.Error())
	}
}

func TestRetriableSuccess(t *testing.T) {
	i := 0
	err := Retriable(context.Background(), func() error {
		i++
		if i < 2 {
			return fmt.Errorf("not yet")
		}
		return nil
	}, time.Microsecond, 3)
	if err != nil || i != 2 {
		t.Errorf("expected success after 2 calls, got %v after %d calls", err, i)
	}
}

func TestRetriableFatal(t *testing.T) {
	i := 0
	err := Retriable(context.Background(), func() error {
		i++
		return MakeFatal(fmt.Errorf("fatal"))
	}, time.Microsecond, 3)
	if !Fatal(err) || i != 1 {
		t.Errorf("expected one call and a fatal error, got %v after %d calls", err, i)
	}
}

func TestRetriableCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	i := 0
	err := Retriable(ctx, func() error {
		i++
		cancel()
		return fmt.Errorf("failed")
	}, time.Hour, 3)
	if err == nil || i != 1 {
		t.Errorf("expected one call, got %v after %d calls", err, i)
	}
}

func TestPermanent(t *testing.T) {
	err := fmt.Errorf("Permanent error")
	if Temporary(err) {
		t.Fail()
	}
	err = &url.Error{Err: err}
	if Temporary(err) {
		t.Fail()
	}
	if Temporary(&googleapi.Error{Code: 404}) {
		t.Error("googleapi 404 is not temporary")
	}
	if Temporary(&smithy.GenericAPIError{Code: "NoSuchKey"}) {
		t.Error("NoSuchKey is not temporary")
	}
}

func TestTemporary(t *testing.T) {
	err := MakeTemporary(fmt.Errorf("Temporary error"))
	if !Temporary(err) {
		t.Fail()
	}
	err = fmt.Errorf("Warp: %w", err)
	if !Temporary(err) {
		t.Fail()
	}
	if !Temporary(context.Canceled) {
		t.Fail()
	}
	if !Temporary(context.DeadlineExceeded) {
		t.Fail()
	}
	err = fmt.Errorf("Warp: %w", &url.Error{Err: err})
	if !Temporary(err) {
		t.Fail()
	}
	if !Temporary(fmt.Errorf("Warp: %w", &googleapi.Error{Code: 503})) {
		t.Error("googleapi 503 is temporary")
	}
	if !Temporary(&smithy.GenericAPIError{Code: "SlowDown"}) {
		t.Error("SlowDown is temporary")
	}
}

func TestMergeErrors(t *testing.T) {
	tmp := MakeTemporary(errors.New("tmp"))
	fatal := MakeFatal(errors.New("fatal"))

	if err := MergeErrors(true, nil, tmp, fatal); !Fatal(err) {
		t.Errorf("priority to error: expected fatal, got %v", err)
	}
	if err := MergeErrors(false, fatal, tmp, nil); err != nil {
		t.Errorf("priority to success: expected nil, got %v", err)
	}
	if err := MergeErrors(true, nil); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

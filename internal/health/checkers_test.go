package health

import (
	"context"
	"errors"
	"testing"
)

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(_ context.Context) error { return f.err }

func TestDatabase_ReportsPingResult(t *testing.T) {
	t.Parallel()

	if err := Database(fakePinger{}).Check(context.Background()); err != nil {
		t.Errorf("healthy pool: err = %v, want nil", err)
	}

	wantErr := errors.New("connection refused")
	if err := Database(fakePinger{err: wantErr}).Check(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("failing pool: err = %v, want %v", err, wantErr)
	}
}

func TestBinaries_MissingBinaryFails(t *testing.T) {
	t.Parallel()

	// "sh" exists on any system these tests run on.
	if err := Binaries("sh").Check(context.Background()); err != nil {
		t.Errorf("sh lookup: err = %v, want nil", err)
	}

	err := Binaries("sh", "definitely-not-a-real-binary-7f3a").Check(context.Background())
	if err == nil {
		t.Fatal("missing binary: err = nil, want error naming the binary")
	}
}

func TestPlayer_AnyBinarySuffices(t *testing.T) {
	t.Parallel()

	if err := Player("definitely-not-a-real-binary-7f3a", "sh").Check(context.Background()); err != nil {
		t.Errorf("one present binary: err = %v, want nil", err)
	}

	if err := Player("definitely-not-a-real-binary-7f3a").Check(context.Background()); err == nil {
		t.Error("no present binaries: err = nil, want error")
	}
}

func TestBinaries_NoNamesAlwaysPasses(t *testing.T) {
	t.Parallel()

	if err := Binaries().Check(context.Background()); err != nil {
		t.Errorf("err = %v, want nil", err)
	}
}

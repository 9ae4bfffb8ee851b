package onnx

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
)

const testModel = "../../testdata/model_optimized.onnx"

func TestNewSession_FileNotFound(t *testing.T) {
	_, err := NewSession("../../testdata/nonexistent.onnx", DefaultNames)
	if err == nil {
		t.Fatal("expected error for non-existent file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got: %v", err)
	}
}

func TestSession_Infer(t *testing.T) {
	session := openTestSession(t)

	logits, err := session.Infer(context.Background(), []int64{0, 35378, 2}, []int64{1, 1, 1})
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	if len(logits) != 3 {
		t.Errorf("expected 3 logits, got %d", len(logits))
	}
}

func TestSession_InferMismatchedInputs(t *testing.T) {
	session := openTestSession(t)

	_, err := session.Infer(context.Background(), []int64{0, 1}, []int64{1})
	if err == nil {
		t.Error("expected error for mismatched input lengths")
	}
}

func TestSession_InferCancelled(t *testing.T) {
	session := openTestSession(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := session.Infer(ctx, []int64{0}, []int64{1})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSession_CloseIdempotent(t *testing.T) {
	session := openTestSession(t)

	if err := session.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}
	if err := session.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if _, err := session.Infer(context.Background(), []int64{0}, []int64{1}); err == nil {
		t.Error("expected error from closed session")
	}
}

func openTestSession(t *testing.T) *Session {
	t.Helper()

	if _, err := os.Stat(testModel); err != nil {
		t.Skipf("Skipping: model not available at %s", testModel)
	}

	session, err := NewSession(testModel, DefaultNames)
	if err != nil {
		if isRuntimeUnavailable(err) {
			t.Skipf("Skipping: ONNX runtime not available: %v", err)
		}
		t.Fatalf("NewSession failed: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func isRuntimeUnavailable(err error) bool {
	msg := err.Error()
	for _, hint := range []string{"onnxruntime", "shared library", "dylib", ".so", ".dll", "cannot open", "initializing ONNX runtime"} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

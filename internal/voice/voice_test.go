package voice

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reply struct {
	result Result
	err    error
}

// scriptedRecognizer blocks each session until a reply is sent or the
// session is cancelled.
type scriptedRecognizer struct {
	started chan string
	replies chan reply
}

func newScriptedRecognizer() *scriptedRecognizer {
	return &scriptedRecognizer{
		started: make(chan string, 4),
		replies: make(chan reply),
	}
}

func (r *scriptedRecognizer) Recognize(ctx context.Context, locale string) (Result, error) {
	r.started <- locale
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case rep := <-r.replies:
		return rep.result, rep.err
	}
}

type delivery struct {
	target     Target
	transcript string
}

func newCapture(t *testing.T, recognizer Recognizer) (*Capture, chan delivery) {
	t.Helper()
	capture := New(recognizer, "", nil)
	results := make(chan delivery, 4)
	capture.OnResult(func(target Target, transcript string) {
		results <- delivery{target, transcript}
	})
	return capture, results
}

func waitIdle(t *testing.T, capture *Capture) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for capture.Listening() != TargetNone {
		if time.Now().After(deadline) {
			t.Fatal("capture did not return to idle")
		}
		runtime.Gosched()
		time.Sleep(time.Millisecond)
	}
}

func TestToggleStartsAndDeliversTranscript(t *testing.T) {
	recognizer := newScriptedRecognizer()
	capture, results := newCapture(t, recognizer)

	require.NoError(t, capture.Toggle(context.Background(), TargetTitle))
	assert.Equal(t, TargetTitle, capture.Listening())
	assert.Equal(t, "ko-KR", <-recognizer.started)

	recognizer.replies <- reply{result: Result{Transcript: "  buy milk "}}
	select {
	case got := <-results:
		assert.Equal(t, delivery{TargetTitle, "buy milk"}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no transcript delivered")
	}
	waitIdle(t, capture)
}

func TestToggleSameTargetStopsWithoutText(t *testing.T) {
	recognizer := newScriptedRecognizer()
	capture, results := newCapture(t, recognizer)

	require.NoError(t, capture.Toggle(context.Background(), TargetDescription))
	<-recognizer.started
	require.NoError(t, capture.Toggle(context.Background(), TargetDescription))
	assert.Equal(t, TargetNone, capture.Listening())

	select {
	case got := <-results:
		t.Fatalf("unexpected transcript %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestToggleOtherTargetSwitches(t *testing.T) {
	recognizer := newScriptedRecognizer()
	capture, results := newCapture(t, recognizer)

	require.NoError(t, capture.Toggle(context.Background(), TargetTitle))
	<-recognizer.started
	require.NoError(t, capture.Toggle(context.Background(), TargetDescription))
	assert.Equal(t, TargetDescription, capture.Listening())
	<-recognizer.started

	recognizer.replies <- reply{result: Result{Transcript: "notes"}}
	got := <-results
	assert.Equal(t, TargetDescription, got.target)
	assert.Equal(t, "notes", got.transcript)
}

func TestRecognizerErrorReturnsToIdle(t *testing.T) {
	recognizer := newScriptedRecognizer()
	capture, results := newCapture(t, recognizer)

	require.NoError(t, capture.Toggle(context.Background(), TargetTitle))
	<-recognizer.started
	recognizer.replies <- reply{err: errors.New("no microphone")}
	waitIdle(t, capture)

	recognizer2 := newScriptedRecognizer()
	capture2, results2 := newCapture(t, recognizer2)
	require.NoError(t, capture2.Toggle(context.Background(), TargetTitle))
	<-recognizer2.started
	recognizer2.replies <- reply{result: Result{Transcript: "   "}}
	waitIdle(t, capture2)

	assert.Empty(t, results)
	assert.Empty(t, results2)
}

func TestToggleWithoutRecognizerStaysIdle(t *testing.T) {
	capture := New(nil, "ko-KR", nil)
	err := capture.Toggle(context.Background(), TargetTitle)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, TargetNone, capture.Listening())
}

func TestCommandRecognizerUnavailable(t *testing.T) {
	_, err := CommandRecognizer{}.Recognize(context.Background(), "ko-KR")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = CommandRecognizer{Command: "lazyjournal-no-such-recognizer"}.Recognize(context.Background(), "ko-KR")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCommandRecognizerReadsStdout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("echo is a shell builtin on windows")
	}
	recognizer := CommandRecognizer{Command: "echo", Args: []string{"hi {locale}"}}

	result, err := recognizer.Recognize(context.Background(), "ko-KR")
	require.NoError(t, err)
	assert.Equal(t, "hi ko-KR", result.Transcript)
}

func TestAppend(t *testing.T) {
	assert.Equal(t, "hello", Append("", "hello"))
	assert.Equal(t, "call mom today", Append("call mom", " today "))
	assert.Equal(t, "unchanged", Append("unchanged", "  "))
}

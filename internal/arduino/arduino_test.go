package arduino

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickwatch/internal/logger"
)

// fakePort пишет команды в буфер и отвечает заготовленным текстом
type fakePort struct {
	written bytes.Buffer
	reply   io.Reader
}

func (p *fakePort) Write(b []byte) (int, error) { return p.written.Write(b) }
func (p *fakePort) Read(b []byte) (int, error)  { return p.reply.Read(b) }

// chunkReader отдает ответ по одному байту, как медленный порт
type chunkReader struct{ s string }

func (r *chunkReader) Read(b []byte) (int, error) {
	if r.s == "" {
		return 0, io.EOF
	}
	b[0] = r.s[0]
	r.s = r.s[1:]
	return 1, nil
}

func TestControllerFastClick(t *testing.T) {
	port := &fakePort{reply: &chunkReader{s: "received\r\n"}}
	c := NewController(port, logger.NewNopLoggerManager())

	require.NoError(t, c.FastClick())
	assert.Equal(t, "fast_click\n", port.written.String())
	assert.NoError(t, c.Close())
}

func TestControllerClickCoordinates(t *testing.T) {
	port := &fakePort{reply: strings.NewReader("received\n")}
	c := NewController(port, logger.NewNopLoggerManager())

	require.NoError(t, c.ClickCoordinates(640, 360))
	assert.Equal(t, "click:640,360\n", port.written.String())
}

func TestWaitForArduinoResponseErrors(t *testing.T) {
	_, err := WaitForArduinoResponse(strings.NewReader("busy\n"), "received")
	assert.ErrorContains(t, err, "unexpected response: 'busy'")

	_, err = WaitForArduinoResponse(strings.NewReader("rece"), "received")
	assert.ErrorIs(t, err, io.EOF)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("port closed") }
func (failingWriter) Read([]byte) (int, error)  { return 0, io.EOF }

func TestProcessAndWaitWriteFailure(t *testing.T) {
	err := ProcessAndWait(SendFastClickToArduino, failingWriter{})
	assert.ErrorContains(t, err, "port closed")
}

package arduino

import (
	"bytes"
	"fmt"
	"io"

	"github.com/tarm/serial"
)

// InitializePort открывает последовательный порт Arduino
func InitializePort(name string, baud int) (*serial.Port, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:     name,
		Baud:     baud,
		Parity:   serial.ParityNone,
		StopBits: serial.Stop1,
	})
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть порт %s: %w", name, err)
	}
	return port, nil
}

func SendFastClickToArduino(w io.Writer) error {
	message := "fast_click\n"
	if _, err := w.Write([]byte(message)); err != nil {
		return fmt.Errorf("error writing to Arduino: %w", err)
	}
	return nil
}

func SendCoordinatesToArduino(w io.Writer, x, y int) error {
	message := fmt.Sprintf("click:%d,%d\n", x, y)
	if _, err := w.Write([]byte(message)); err != nil {
		return fmt.Errorf("error writing to Arduino: %w", err)
	}
	return nil
}

// WaitForArduinoResponse читает строку ответа и сравнивает её с ожидаемой
func WaitForArduinoResponse(r io.Reader, expectedResponse string) (string, error) {
	var response []byte
	buf := make([]byte, 128)
	for {
		n, err := r.Read(buf)
		response = append(response, buf[:n]...)

		if i := bytes.IndexByte(response, '\n'); i >= 0 {
			line := string(bytes.TrimSpace(response[:i]))
			if line == expectedResponse {
				return line, nil
			}
			return "", fmt.Errorf("unexpected response: '%s'", line)
		}
		if err != nil {
			return "", fmt.Errorf("error reading from Arduino: %w", err)
		}
	}
}

package recorder

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"tickwatch/internal/phase"
)

// Header: заголовок файла замеров
var Header = []string{"timestamp_ms", "digit", "digit_conf", "ms_since_last_digit_change", "mouse_x", "mouse_y"}

// ErrMalformedRow возвращается при разборе битой строки лога
var ErrMalformedRow = errors.New("некорректная строка лога замеров")

// TimingSample: одна строка лога: событие клика и последнее сырое показание
type TimingSample struct {
	TimestampMs int64
	Digit       phase.Phase
	Confidence  float64
	// SinceChangeMs: nil, если смены цифры ещё не было
	SinceChangeMs *int64
	X             int
	Y             int
}

// SampleLog: append-only CSV лог замеров
type SampleLog struct {
	path string
}

// NewSampleLog проверяет, что файл можно создать, и возвращает лог.
// Ошибка здесь: единственная, которую стоит показывать оператору как фатальную.
func NewSampleLog(path string) (*SampleLog, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("ошибка создания директории для лога замеров: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия лога замеров: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("ошибка закрытия лога замеров: %w", err)
	}
	return &SampleLog{path: path}, nil
}

// Path возвращает путь к файлу
func (l *SampleLog) Path() string {
	return l.path
}

// Append дописывает строку. Файл открывается и закрывается на каждую запись,
// строка (и заголовок для пустого файла) уходит одним вызовом Write.
func (l *SampleLog) Append(s TimingSample) error {
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("ошибка открытия лога замеров: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("ошибка чтения размера лога замеров: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return err
		}
	}
	if err := w.Write(encodeSample(s)); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("ошибка формирования строки: %w", err)
	}

	if _, err := file.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("ошибка записи в лог замеров: %w", err)
	}
	return file.Close()
}

func encodeSample(s TimingSample) []string {
	since := ""
	if s.SinceChangeMs != nil {
		since = strconv.FormatInt(*s.SinceChangeMs, 10)
	}
	return []string{
		strconv.FormatInt(s.TimestampMs, 10),
		s.Digit.String(),
		strconv.FormatFloat(s.Confidence, 'f', 3, 64),
		since,
		strconv.Itoa(s.X),
		strconv.Itoa(s.Y),
	}
}

// ReadSamples читает все строки лога
func ReadSamples(path string) ([]TimingSample, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия лога замеров: %w", err)
	}
	defer file.Close()
	return DecodeSamples(file)
}

// DecodeSamples разбирает CSV с заголовком
func DecodeSamples(r io.Reader) ([]TimingSample, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(Header)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения заголовка: %w", err)
	}
	for i, name := range Header {
		if header[i] != name {
			return nil, fmt.Errorf("%w: неожиданная колонка %q вместо %q", ErrMalformedRow, header[i], name)
		}
	}

	var samples []TimingSample
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: строка %d: %v", ErrMalformedRow, line, err)
		}
		s, err := decodeSample(record)
		if err != nil {
			return nil, fmt.Errorf("%w: строка %d: %v", ErrMalformedRow, line, err)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func decodeSample(record []string) (TimingSample, error) {
	var s TimingSample
	var err error

	if s.TimestampMs, err = strconv.ParseInt(record[0], 10, 64); err != nil {
		return s, err
	}
	if s.Digit, err = phase.Parse(record[1]); err != nil {
		return s, err
	}
	if s.Confidence, err = strconv.ParseFloat(record[2], 64); err != nil {
		return s, err
	}
	if record[3] != "" {
		since, err := strconv.ParseInt(record[3], 10, 64)
		if err != nil {
			return s, err
		}
		s.SinceChangeMs = &since
	}
	if s.X, err = strconv.Atoi(record[4]); err != nil {
		return s, err
	}
	if s.Y, err = strconv.Atoi(record[5]); err != nil {
		return s, err
	}
	return s, nil
}

package arduino

import (
	"fmt"
	"io"
	"sync"

	"tickwatch/internal/config"
	"tickwatch/internal/logger"
)

const ackResponse = "received"

// ProcessAndWait отправляет команду и ждет подтверждения от Arduino
func ProcessAndWait(send func(io.Writer) error, port io.ReadWriter) error {
	if err := send(port); err != nil {
		return err
	}
	if _, err := WaitForArduinoResponse(port, ackResponse); err != nil {
		return fmt.Errorf("error waiting for Arduino response: %w", err)
	}
	return nil
}

// Controller сериализует команды к Arduino: один запрос, один ответ
type Controller struct {
	mu     sync.Mutex
	port   io.ReadWriter
	logger *logger.LoggerManager
}

// NewController создает контроллер поверх открытого порта
func NewController(port io.ReadWriter, loggerManager *logger.LoggerManager) *Controller {
	return &Controller{port: port, logger: loggerManager}
}

// Open открывает порт из конфигурации
func Open(cfg config.Arduino, loggerManager *logger.LoggerManager) (*Controller, error) {
	port, err := InitializePort(cfg.Port, cfg.BaudRate)
	if err != nil {
		return nil, err
	}
	loggerManager.Info("🔌 Arduino подключен: %s (%d бод)", cfg.Port, cfg.BaudRate)
	return NewController(port, loggerManager), nil
}

// FastClick: клик в текущей позиции курсора
func (c *Controller) FastClick() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ProcessAndWait(SendFastClickToArduino, c.port)
}

// ClickCoordinates: перемещение курсора и клик
func (c *Controller) ClickCoordinates(x, y int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ProcessAndWait(func(w io.Writer) error {
		return SendCoordinatesToArduino(w, x, y)
	}, c.port)
}

// Close закрывает порт, если он это поддерживает
func (c *Controller) Close() error {
	c.logger.Debug("🔌 Закрываем порт Arduino")
	if closer, ok := c.port.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

package interrupt

import (
	"context"
	"fmt"
	"time"

	"github.com/moutend/go-hook/pkg/keyboard"
	"github.com/moutend/go-hook/pkg/mouse"
	"github.com/moutend/go-hook/pkg/types"

	"tickwatch/internal/logger"
)

// Хуки вынесены в переменные, чтобы тесты могли подменить установку
var (
	installKeyboard   = keyboard.Install
	uninstallKeyboard = keyboard.Uninstall
	installMouse      = mouse.Install
	uninstallMouse    = mouse.Uninstall
)

// ClickEvent: нажатие левой кнопки мыши
type ClickEvent struct {
	At   time.Time
	X, Y int
}

// InterruptManager переводит горячие клавиши в команды, а клики мыши в события
type InterruptManager struct {
	commands      *CommandQueue
	clicks        chan ClickEvent
	loggerManager *logger.LoggerManager
	now           func() time.Time
}

// NewInterruptManager создает новый менеджер прерываний
func NewInterruptManager(commands *CommandQueue, clickBuffer int, loggerManager *logger.LoggerManager) *InterruptManager {
	if clickBuffer < 1 {
		clickBuffer = 1
	}
	return &InterruptManager{
		commands:      commands,
		clicks:        make(chan ClickEvent, clickBuffer),
		loggerManager: loggerManager,
		now:           time.Now,
	}
}

// Commands возвращает очередь команд
func (im *InterruptManager) Commands() *CommandQueue {
	return im.commands
}

// Clicks возвращает канал кликов мыши
func (im *InterruptManager) Clicks() <-chan ClickEvent {
	return im.clicks
}

// RunKeyboard слушает клавиатуру до отмены контекста
func (im *InterruptManager) RunKeyboard(ctx context.Context) error {
	eventChan := make(chan types.KeyboardEvent, 100)
	if err := installKeyboard(nil, eventChan); err != nil {
		return fmt.Errorf("не удалось установить хук клавиатуры: %w", err)
	}
	defer uninstallKeyboard()
	im.loggerManager.Info("⌨️ Горячие клавиши: Shift+Enter: пауза, Q: выход, Num+/Num-: порог")

	var keys keyState
	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-eventChan:
			cmd, ok := keys.translate(event)
			if !ok {
				continue
			}
			if !im.commands.Push(cmd) {
				im.loggerManager.Warn("⚠️ Очередь команд переполнена, команда %s отброшена", cmd.Kind)
			}
		}
	}
}

// Сообщения мыши WinAPI: в go-hook объявлены только клавиатурные
const (
	wmMouseMove   types.Message = 0x0200
	wmLButtonDown types.Message = 0x0201
	wmRButtonDown types.Message = 0x0204
)

// RunMouse слушает левую кнопку мыши до отмены контекста
func (im *InterruptManager) RunMouse(ctx context.Context) error {
	eventChan := make(chan types.MouseEvent, 100)
	if err := installMouse(nil, eventChan); err != nil {
		return fmt.Errorf("не удалось установить хук мыши: %w", err)
	}
	defer uninstallMouse()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-eventChan:
			if event.Message != wmLButtonDown {
				continue
			}
			click := ClickEvent{At: im.now(), X: int(event.X), Y: int(event.Y)}
			select {
			case im.clicks <- click:
			default:
				im.loggerManager.Warn("⚠️ Клик (%d, %d) отброшен: очередь кликов переполнена", click.X, click.Y)
			}
		}
	}
}

// keyState отслеживает зажатый Shift
type keyState struct {
	shiftPressed bool
}

func isShift(vk types.VKCode) bool {
	return vk == types.VK_LSHIFT || vk == types.VK_RSHIFT
}

func (s *keyState) translate(event types.KeyboardEvent) (Command, bool) {
	switch event.Message {
	case types.WM_KEYUP:
		if isShift(event.VKCode) {
			s.shiftPressed = false
		}
		return Command{}, false
	case types.WM_KEYDOWN:
	default:
		return Command{}, false
	}

	switch {
	case isShift(event.VKCode):
		s.shiftPressed = true
	case event.VKCode == types.VK_RETURN && s.shiftPressed:
		return Command{Kind: TogglePause}, true
	case event.VKCode == types.VK_Q:
		return Command{Kind: Quit}, true
	case event.VKCode == types.VK_ADD:
		return Command{Kind: ThresholdUp}, true
	case event.VKCode == types.VK_SUBTRACT:
		return Command{Kind: ThresholdDown}, true
	}
	return Command{}, false
}

package interrupt

import "fmt"

// CommandKind: вид управляющей команды
type CommandKind int

const (
	Pause CommandKind = iota
	Resume
	TogglePause
	Quit
	ThresholdUp
	ThresholdDown
	SetThreshold
)

func (k CommandKind) String() string {
	switch k {
	case Pause:
		return "pause"
	case Resume:
		return "resume"
	case TogglePause:
		return "toggle_pause"
	case Quit:
		return "quit"
	case ThresholdUp:
		return "threshold_up"
	case ThresholdDown:
		return "threshold_down"
	case SetThreshold:
		return "set_threshold"
	}
	return fmt.Sprintf("command(%d)", int(k))
}

// Command: команда для цикла опроса. Value используется только SetThreshold.
type Command struct {
	Kind  CommandKind
	Value float64
}

// ParseAction переводит действие из таблицы actions в команду
func ParseAction(action string) (Command, bool) {
	switch action {
	case "pause", "stop_script":
		return Command{Kind: Pause}, true
	case "resume", "start_script":
		return Command{Kind: Resume}, true
	case "stop", "quit":
		return Command{Kind: Quit}, true
	}
	return Command{}, false
}

// CommandQueue: ограниченная очередь команд. Производители не блокируются:
// при переполнении команда отбрасывается. Quit вытесняет самую старую команду,
// чтобы остановка не терялась.
type CommandQueue struct {
	ch chan Command
}

// NewCommandQueue создает очередь на size команд
func NewCommandQueue(size int) *CommandQueue {
	if size < 1 {
		size = 1
	}
	return &CommandQueue{ch: make(chan Command, size)}
}

// Push кладет команду в очередь. Возвращает false, если команда отброшена.
func (q *CommandQueue) Push(cmd Command) bool {
	select {
	case q.ch <- cmd:
		return true
	default:
	}
	if cmd.Kind != Quit {
		return false
	}
	for {
		select {
		case <-q.ch:
		default:
		}
		select {
		case q.ch <- cmd:
			return true
		default:
		}
	}
}

// Drain забирает все накопленные команды в порядке поступления
func (q *CommandQueue) Drain() []Command {
	var cmds []Command
	for {
		select {
		case cmd := <-q.ch:
			cmds = append(cmds, cmd)
		default:
			return cmds
		}
	}
}

// Len возвращает число ожидающих команд
func (q *CommandQueue) Len() int {
	return len(q.ch)
}

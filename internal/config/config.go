package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"tickwatch/internal/phase"
	"tickwatch/internal/tracker"
)

// ErrConfigMissing: файл конфигурации не найден, используются значения по умолчанию
var ErrConfigMissing = errors.New("файл конфигурации не найден")

// Структура для координат с размером
type CoordinatesWithSize struct {
	X      int `mapstructure:"x"`
	Y      int `mapstructure:"y"`
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

// TrackerConfig: параметры секвенсора и цикла опроса
type TrackerConfig struct {
	tracker.Settings `mapstructure:",squash"`
	PollIntervalMs   int     `mapstructure:"poll_interval_ms"`
	ThresholdStep    float64 `mapstructure:"threshold_step"`
}

// Capture: область индикатора тика на экране
type Capture struct {
	Region          CoordinatesWithSize `mapstructure:"region"`
	FindWindow      bool                `mapstructure:"find_window"`
	WindowTopOffset int                 `mapstructure:"window_top_offset"`
	ScreenWidth     int                 `mapstructure:"screen_width"`
	ScreenHeight    int                 `mapstructure:"screen_height"`
}

// Classifier: шаблоны цифр и масштабы поиска
type Classifier struct {
	TemplatesDir string    `mapstructure:"templates_dir"`
	Scales       []float64 `mapstructure:"scales"`
	MinScore     float64   `mapstructure:"min_score"`
	// CacheFrames: не классифицировать повторно неизменившийся кадр
	CacheFrames    bool `mapstructure:"cache_frames"`
	FrameTolerance int  `mapstructure:"frame_tolerance"`
}

// Recorder: лог замеров задержек
type Recorder struct {
	LogPath        string `mapstructure:"log_path"`
	PollIntervalMs int    `mapstructure:"poll_interval_ms"`
}

// Analyzer: параметры рекомендации сдвига
type Analyzer struct {
	TargetPhase int     `mapstructure:"target_phase"`
	MarginMs    float64 `mapstructure:"margin_ms"`
}

// Arduino: клик по тику через Arduino
type Arduino struct {
	Enabled       bool   `mapstructure:"enabled"`
	Port          string `mapstructure:"port"`
	BaudRate      int    `mapstructure:"baud_rate"`
	TargetPhase   int    `mapstructure:"target_phase"`
	ClickOffsetMs int    `mapstructure:"click_offset_ms"`
}

// Database: зеркалирование событий в MySQL
type Database struct {
	SaveToDB              bool   `mapstructure:"save_to_db"`
	DSN                   string `mapstructure:"dsn"`
	ActionCheckIntervalMs int    `mapstructure:"action_check_interval_ms"`
}

// Основная структура конфигурации
type Config struct {
	LogFilePath string        `mapstructure:"log_file_path"`
	LogLevel    string        `mapstructure:"log_level"`
	Tracker     TrackerConfig `mapstructure:"tracker"`
	Capture     Capture       `mapstructure:"capture"`
	Classifier  Classifier    `mapstructure:"classifier"`
	Recorder    Recorder      `mapstructure:"recorder"`
	Analyzer    Analyzer      `mapstructure:"analyzer"`
	Arduino     Arduino       `mapstructure:"arduino"`
	Database    Database      `mapstructure:"database"`
}

// setDefaults задает значения для всех ключей
func setDefaults(v *viper.Viper) {
	d := tracker.DefaultSettings()

	v.SetDefault("log_file_path", "logs/tickwatch.log")
	v.SetDefault("log_level", "INFO")

	v.SetDefault("tracker.nominal_cycle_ms", d.NominalCycleMs)
	v.SetDefault("tracker.min_confidence", d.MinConfidence)
	v.SetDefault("tracker.debounce_factor", d.DebounceFactor)
	v.SetDefault("tracker.stale_factor", d.StaleFactor)
	v.SetDefault("tracker.infer_factor", d.InferFactor)
	v.SetDefault("tracker.smoothing_weight", d.SmoothingWeight)
	v.SetDefault("tracker.min_plausible_gap_ms", d.MinPlausibleGapMs)
	v.SetDefault("tracker.max_plausible_gap_ms", d.MaxPlausibleGapMs)
	v.SetDefault("tracker.poll_interval_ms", 25)
	v.SetDefault("tracker.threshold_step", 0.05)

	v.SetDefault("capture.region.x", 0)
	v.SetDefault("capture.region.y", 0)
	v.SetDefault("capture.region.width", 48)
	v.SetDefault("capture.region.height", 32)
	v.SetDefault("capture.find_window", false)
	v.SetDefault("capture.window_top_offset", 0)
	v.SetDefault("capture.screen_width", 1920)
	v.SetDefault("capture.screen_height", 1080)

	v.SetDefault("classifier.templates_dir", "templates")
	v.SetDefault("classifier.scales", []float64{0.8, 0.9, 1.0, 1.1, 1.2})
	v.SetDefault("classifier.min_score", 0.5)
	v.SetDefault("classifier.cache_frames", true)
	v.SetDefault("classifier.frame_tolerance", 2)

	v.SetDefault("recorder.log_path", "data/tick_samples.csv")
	v.SetDefault("recorder.poll_interval_ms", 40)

	v.SetDefault("analyzer.target_phase", 1)
	v.SetDefault("analyzer.margin_ms", 20)

	v.SetDefault("arduino.enabled", false)
	v.SetDefault("arduino.port", "COM3")
	v.SetDefault("arduino.baud_rate", 9600)
	v.SetDefault("arduino.target_phase", 1)
	v.SetDefault("arduino.click_offset_ms", 0)

	v.SetDefault("database.save_to_db", false)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.action_check_interval_ms", 1000)
}

// InitConfig читает yaml-конфигурацию. Если path пустой, ищется config.yaml
// в текущей директории. Отсутствие файла не фатально: возвращаются значения
// по умолчанию и ошибка, оборачивающая ErrConfigMissing.
func InitConfig(path string) (Config, *viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	var missing error
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, v, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
		}
		missing = fmt.Errorf("%w: %v", ErrConfigMissing, err)
	}

	config, err := decode(v)
	if err != nil {
		return config, v, err
	}
	return config, v, missing
}

func decode(v *viper.Viper) (Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("не удалось разобрать конфигурацию: %w", err)
	}
	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("некорректная конфигурация: %w", err)
	}
	return config, nil
}

// Validate проверяет диапазоны значений
func (c Config) Validate() error {
	if err := c.Tracker.Settings.Validate(); err != nil {
		return err
	}
	if c.Tracker.PollIntervalMs <= 0 || c.Recorder.PollIntervalMs <= 0 {
		return fmt.Errorf("poll_interval_ms должен быть > 0")
	}
	if c.Tracker.ThresholdStep <= 0 || c.Tracker.ThresholdStep >= 1 {
		return fmt.Errorf("threshold_step должен быть в (0,1), получено %v", c.Tracker.ThresholdStep)
	}
	if c.Capture.Region.Width <= 0 || c.Capture.Region.Height <= 0 {
		return fmt.Errorf("область захвата должна иметь положительный размер")
	}
	if len(c.Classifier.Scales) == 0 {
		return fmt.Errorf("classifier.scales не может быть пустым")
	}
	for _, s := range c.Classifier.Scales {
		if s <= 0 {
			return fmt.Errorf("масштаб классификатора должен быть > 0, получено %v", s)
		}
	}
	if c.Classifier.FrameTolerance < 0 || c.Classifier.FrameTolerance > 255 {
		return fmt.Errorf("frame_tolerance должен быть в диапазоне 0..255")
	}
	_, analyzerOK := phase.FromInt(c.Analyzer.TargetPhase)
	_, arduinoOK := phase.FromInt(c.Arduino.TargetPhase)
	if !analyzerOK || !arduinoOK {
		return fmt.Errorf("target_phase должен быть в диапазоне 1..%d", phase.Count)
	}
	if c.Analyzer.MarginMs < 0 || c.Arduino.ClickOffsetMs < 0 {
		return fmt.Errorf("margin_ms и click_offset_ms не могут быть отрицательными")
	}
	if c.Database.SaveToDB && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn обязателен при save_to_db")
	}
	return nil
}

// PollInterval возвращает интервал опроса секвенсора
func (c TrackerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// PollInterval возвращает интервал опроса рекордера
func (c Recorder) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// WatchTracker подписывается на изменения файла конфигурации. В onChange
// приходят только параметры трекера; некорректная правка передаётся как ошибка.
func WatchTracker(v *viper.Viper, onChange func(TrackerConfig, error)) bool {
	path := v.ConfigFileUsed()
	if path == "" {
		return false
	}
	if _, err := os.Stat(path); err != nil {
		return false
	}
	v.OnConfigChange(reloadHandler(v, onChange))
	v.WatchConfig()
	return true
}

func reloadHandler(v *viper.Viper, onChange func(TrackerConfig, error)) func(fsnotify.Event) {
	return func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		config, err := decode(v)
		if err != nil {
			onChange(TrackerConfig{}, err)
			return
		}
		onChange(config.Tracker, nil)
	}
}

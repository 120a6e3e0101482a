package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

// Settings is the whole bot configuration.
type Settings struct {
	Capital          float64            `json:"capital" yaml:"capital" toml:"capital" jsonschema:"description=Trading capital,default=100000" validate:"gt=0"`
	RiskPerTrade     float64            `json:"risk_per_trade" yaml:"risk_per_trade" toml:"risk_per_trade" jsonschema:"description=Percent of capital risked per trade,default=2" validate:"gt=0,lte=100"`
	MaxTrades        int                `json:"max_trades" yaml:"max_trades" toml:"max_trades" jsonschema:"description=Maximum open positions,default=5" validate:"gte=1"`
	Mode             types.Mode         `json:"mode" yaml:"mode" toml:"mode" jsonschema:"description=Trading mode,enum=paper,enum=live,default=paper" validate:"oneof=paper live"`
	Broker           string             `json:"broker" yaml:"broker" toml:"broker" jsonschema:"description=Broker name recorded with trades,default=angelone" validate:"required"`
	Segment          string             `json:"segment" yaml:"segment" toml:"segment" jsonschema:"description=Market segment,default=NSE_FO" validate:"required"`
	Timezone         string             `json:"timezone" yaml:"timezone" toml:"timezone" jsonschema:"description=IANA timezone of the schedules,default=Asia/Kolkata" validate:"required,timezone"`
	ActiveStrategies []string           `json:"active_strategies" yaml:"active_strategies" toml:"active_strategies" jsonschema:"description=Strategies to run"`
	Symbols          []types.SymbolInfo `json:"symbols" yaml:"symbols" toml:"symbols" jsonschema:"description=Tradable instruments" validate:"dive"`
	Backtest         BacktestSettings   `json:"backtest" yaml:"backtest" toml:"backtest"`
	Realtime         RealtimeSettings   `json:"realtime" yaml:"realtime" toml:"realtime"`
	Paths            PathSettings       `json:"paths" yaml:"paths" toml:"paths"`
	Redis            RedisSettings      `json:"redis" yaml:"redis" toml:"redis"`
	Journal          JournalSettings    `json:"journal" yaml:"journal" toml:"journal"`
	Control          ControlSettings    `json:"control" yaml:"control" toml:"control"`
}

// ScheduleSettings is a daily operating window in the settings timezone.
type ScheduleSettings struct {
	Start        string `json:"start" yaml:"start" toml:"start" jsonschema:"description=Window start (HH:MM)" validate:"datetime=15:04"`
	End          string `json:"end" yaml:"end" toml:"end" jsonschema:"description=Window end (HH:MM)" validate:"datetime=15:04"`
	WeekdaysOnly bool   `json:"weekdays_only" yaml:"weekdays_only" toml:"weekdays_only" jsonschema:"description=Skip Saturday and Sunday"`
}

type BacktestSettings struct {
	SessionDurationMonths int              `json:"session_duration_months" yaml:"session_duration_months" toml:"session_duration_months" jsonschema:"description=Length of one session in 30-day months,default=4" validate:"gte=1"`
	StartDate             string           `json:"start_date" yaml:"start_date" toml:"start_date" jsonschema:"description=First replayed date (YYYY-MM-DD),default=2010-01-01" validate:"datetime=2006-01-02"`
	Schedule              ScheduleSettings `json:"schedule" yaml:"schedule" toml:"schedule"`
}

type RealtimeSettings struct {
	Schedule          ScheduleSettings `json:"schedule" yaml:"schedule" toml:"schedule"`
	LTPUpdateInterval time.Duration    `json:"ltp_update_interval" yaml:"ltp_update_interval" toml:"ltp_update_interval" jsonschema:"description=How often LTPs are refreshed,default=600000000000" validate:"gt=0"`
	ScanInterval      time.Duration    `json:"scan_interval" yaml:"scan_interval" toml:"scan_interval" jsonschema:"description=How often the trading cycle runs,default=60000000000" validate:"gt=0"`
	CandleInterval    string           `json:"candle_interval" yaml:"candle_interval" toml:"candle_interval" jsonschema:"description=Candle interval requested from the broker,default=1m" validate:"required"`
	LookbackDays      int              `json:"lookback_days" yaml:"lookback_days" toml:"lookback_days" jsonschema:"description=Days of candles fetched per scan,default=5" validate:"gte=1"`
}

type PathSettings struct {
	BacktestState  string `json:"backtest_state" yaml:"backtest_state" toml:"backtest_state" validate:"required"`
	Historical     string `json:"historical" yaml:"historical" toml:"historical" validate:"required"`
	TradesBacktest string `json:"trades_backtest" yaml:"trades_backtest" toml:"trades_backtest" validate:"required"`
	TradesRealtime string `json:"trades_realtime" yaml:"trades_realtime" toml:"trades_realtime" validate:"required"`
	LogsBacktest   string `json:"logs_backtest" yaml:"logs_backtest" toml:"logs_backtest" validate:"required"`
	LogsRealtime   string `json:"logs_realtime" yaml:"logs_realtime" toml:"logs_realtime" validate:"required"`
}

// RedisSettings enables the Redis progress store, price cache and pair
// lock when Addr is set.
type RedisSettings struct {
	Addr     string `json:"addr" yaml:"addr" toml:"addr" jsonschema:"description=Redis address; empty disables Redis"`
	Password string `json:"password" yaml:"password" toml:"password"`
	DB       int    `json:"db" yaml:"db" toml:"db" validate:"gte=0"`
	TLS      bool   `json:"tls" yaml:"tls" toml:"tls"`
}

type JournalSettings struct {
	SQLDriver   string `json:"sql_driver" yaml:"sql_driver" toml:"sql_driver" jsonschema:"description=Additional SQL journal driver,enum=,enum=sqlite3,enum=pgx" validate:"omitempty,oneof=sqlite3 pgx"`
	SQLDSN      string `json:"sql_dsn" yaml:"sql_dsn" toml:"sql_dsn" validate:"required_with=SQLDriver"`
	ParquetPath string `json:"parquet_path" yaml:"parquet_path" toml:"parquet_path" jsonschema:"description=Additional parquet journal file"`
}

type ControlSettings struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr" jsonschema:"description=Listen address of the control API,default=:8080"`
}

// Default returns the settings used when a field is absent from the file.
func Default() Settings {
	return Settings{
		Capital:          100000,
		RiskPerTrade:     2.0,
		MaxTrades:        5,
		Mode:             types.ModePaper,
		Broker:           "angelone",
		Segment:          "NSE_FO",
		Timezone:         "Asia/Kolkata",
		ActiveStrategies: []string{},
		Symbols:          []types.SymbolInfo{},
		Backtest: BacktestSettings{
			SessionDurationMonths: 4,
			StartDate:             "2010-01-01",
			Schedule: ScheduleSettings{
				Start:        "06:00",
				End:          "12:00",
				WeekdaysOnly: false,
			},
		},
		Realtime: RealtimeSettings{
			Schedule: ScheduleSettings{
				Start:        "08:55",
				End:          "16:05",
				WeekdaysOnly: true,
			},
			LTPUpdateInterval: 10 * time.Minute,
			ScanInterval:      time.Minute,
			CandleInterval:    "1m",
			LookbackDays:      5,
		},
		Paths: PathSettings{
			BacktestState:  "data/backtest_state",
			Historical:     "data/historical",
			TradesBacktest: "trades/backtest_trades.csv",
			TradesRealtime: "trades/realtime_trades.csv",
			LogsBacktest:   "logs/backtest",
			LogsRealtime:   "logs/realtime",
		},
		Redis: RedisSettings{
			Addr:     "",
			Password: "",
			DB:       0,
			TLS:      false,
		},
		Journal: JournalSettings{
			SQLDriver:   "",
			SQLDSN:      "",
			ParquetPath: "",
		},
		Control: ControlSettings{
			Addr: ":8080",
		},
	}
}

// Validate checks field constraints and that the schedules are well ordered.
func (s *Settings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid settings", err)
	}

	for name, window := range map[string]ScheduleSettings{
		"backtest": s.Backtest.Schedule,
		"realtime": s.Realtime.Schedule,
	} {
		if window.Start >= window.End {
			return errors.Newf(errors.ErrCodeInvalidSchedule, "%s schedule start %s is not before end %s", name, window.Start, window.End)
		}
	}

	return nil
}

// Location loads the settings timezone.
func (s *Settings) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "unknown timezone %q", s.Timezone)
	}

	return loc, nil
}

// BacktestStart is the global start date at midnight in loc.
func (s *Settings) BacktestStart(loc *time.Location) (time.Time, error) {
	start, err := time.ParseInLocation(time.DateOnly, s.Backtest.StartDate, loc)
	if err != nil {
		return time.Time{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid backtest start date %q", s.Backtest.StartDate)
	}

	return start, nil
}

// ActiveSymbols returns the symbols flagged active, in file order.
func (s *Settings) ActiveSymbols() []types.SymbolInfo {
	active := make([]types.SymbolInfo, 0, len(s.Symbols))

	for _, sym := range s.Symbols {
		if sym.Active {
			active = append(active, sym)
		}
	}

	return active
}

// Symbol looks up an instrument by name.
func (s *Settings) Symbol(name string) (types.SymbolInfo, error) {
	i := slices.IndexFunc(s.Symbols, func(sym types.SymbolInfo) bool { return sym.Symbol == name })
	if i < 0 {
		return types.SymbolInfo{}, errors.Newf(errors.ErrCodeSymbolNotFound, "unknown symbol %s", name)
	}

	return s.Symbols[i], nil
}

// clone copies the slices so callers cannot mutate the stored settings.
func (s Settings) clone() Settings {
	s.ActiveStrategies = slices.Clone(s.ActiveStrategies)
	s.Symbols = slices.Clone(s.Symbols)

	return s
}

func (s Settings) String() string {
	return fmt.Sprintf("mode=%s capital=%.2f risk=%.2f%% max_trades=%d strategies=%v symbols=%d",
		s.Mode, s.Capital, s.RiskPerTrade, s.MaxTrades, s.ActiveStrategies, len(s.Symbols))
}

package mocks

//go:generate mockgen -destination=./mock_broker.go -package=mocks github.com/rxtech-lab/argo-autotrader/internal/broker Broker
//go:generate mockgen -destination=./mock_strategy.go -package=mocks github.com/rxtech-lab/argo-autotrader/internal/strategy Strategy
//go:generate mockgen -destination=./mock_datasource.go -package=mocks github.com/rxtech-lab/argo-autotrader/internal/datasource HistoricalSource
//go:generate mockgen -destination=./mock_journal.go -package=mocks github.com/rxtech-lab/argo-autotrader/internal/journal Journal
//go:generate mockgen -destination=./mock_price_cache.go -package=mocks github.com/rxtech-lab/argo-autotrader/internal/trading/live PriceCache
//go:generate mockgen -destination=./mock_locker.go -package=mocks github.com/rxtech-lab/argo-autotrader/internal/lock Locker

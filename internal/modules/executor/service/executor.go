package service

import (
	"context"
	"sync"
	"time"

	"deriv_bot/internal/calc"
	"deriv_bot/internal/deriv"
	"deriv_bot/internal/models"
	"deriv_bot/internal/modules/config"
	"deriv_bot/internal/notify"
	"deriv_bot/pkg/logger"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
)

// стартовый баланс paper-режима, пока журнал пуст
const paperStartBalance = 1000.0

type SignalStore interface {
	Pending(ctx context.Context) ([]models.Signal, error)
	MarkProcessed(ctx context.Context, id int64) error
}

type TradeStore interface {
	Insert(ctx context.Context, trade *models.Trade) error
	Open(ctx context.Context, symbol string) ([]models.Trade, error)
	CloseTrade(ctx context.Context, trade *models.Trade) error
}

type BalanceStore interface {
	Append(ctx context.Context, snap *models.BalanceSnapshot) error
	Latest(ctx context.Context) (float64, bool, error)
}

type Broker interface {
	Balance(ctx context.Context) (float64, error)
	Buy(ctx context.Context, p deriv.BuyParams) (*deriv.BuyResult, error)
	SubscribePortfolio(ctx context.Context) (<-chan deriv.PortfolioUpdate, error)
	Done() <-chan struct{}
	Close()
}

// Executor раз в ExecutorInterval разбирает необработанные сигналы.
// Single-flight на процесс: пока сделка в полёте, цикл опроса
// пропускается целиком.
type Executor struct {
	cfg      *config.Config
	signals  SignalStore
	trades   TradeStore
	balances BalanceStore
	n        notify.Notifier
	dial     func(ctx context.Context) (Broker, error)

	mu        sync.Mutex
	executing bool
	broker    Broker
}

func New(
	cfg *config.Config,
	signals SignalStore,
	trades TradeStore,
	balances BalanceStore,
	n *notify.Telegram,
) *Executor {
	return &Executor{
		cfg:      cfg,
		signals:  signals,
		trades:   trades,
		balances: balances,
		n:        n,
		dial: func(ctx context.Context) (Broker, error) {
			client := deriv.NewClient(cfg.Deriv.WSURL, cfg.Deriv.Token, true)
			if err := client.Connect(ctx); err != nil {
				return nil, err
			}
			return client, nil
		},
	}
}

func (s *Executor) Run(ctx context.Context) {
	logger.Info("[EXECUTOR] starting for %s, mode=%s, base stake=$%.2f",
		s.cfg.Symbol, s.cfg.Mode, s.cfg.BaseStake)
	s.n.Sendf("🤖 Executor запущен: %s, режим %s", s.cfg.Symbol, s.cfg.Mode)

	if s.cfg.Mode != "live" {
		s.runPaper(ctx)
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}

		broker, err := s.dial(ctx)
		if err != nil {
			logger.Error("[EXECUTOR] connect: %v. Reconnecting...", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.cfg.ReconnectDelay):
			}
			continue
		}

		s.setBroker(broker)
		s.runLive(ctx, broker)
		s.setBroker(nil)
		broker.Close()

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.ReconnectDelay):
		}
	}
}

func (s *Executor) runLive(ctx context.Context, broker Broker) {
	updates, err := broker.SubscribePortfolio(ctx)
	if err != nil {
		logger.Error("[EXECUTOR] subscribe portfolio: %v", err)
		return
	}

	ticker := time.NewTicker(s.cfg.ExecutorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-broker.Done():
			logger.Error("[EXECUTOR] connection lost")
			return
		case <-ticker.C:
			if err := s.checkSignals(ctx); err != nil {
				logger.Error("[EXECUTOR] signal check: %v", err)
			}
		case u := <-updates:
			s.onPortfolioUpdate(ctx, u)
		}
	}
}

func (s *Executor) runPaper(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ExecutorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.checkSignals(ctx); err != nil {
				logger.Error("[EXECUTOR] signal check: %v", err)
			}
		}
	}
}

func (s *Executor) setBroker(b Broker) {
	s.mu.Lock()
	s.broker = b
	s.mu.Unlock()
}

func (s *Executor) currentBroker() Broker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.broker
}

func (s *Executor) tryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.executing {
		return false
	}
	s.executing = true
	return true
}

func (s *Executor) release() {
	s.mu.Lock()
	s.executing = false
	s.mu.Unlock()
}

// checkSignals разбирает pending-сигналы по одному. Сигнал помечается
// processed сразу после передачи в execute: неудачное размещение
// логируется, но не ретраится.
func (s *Executor) checkSignals(ctx context.Context) error {
	if !s.tryAcquire() {
		logger.Info("[EXECUTOR] already executing - skipping cycle")
		return nil
	}
	defer s.release()

	sigs, err := s.signals.Pending(ctx)
	if err != nil {
		return err
	}

	for _, sig := range sigs {
		if err := s.execute(ctx, sig); err != nil {
			logger.Error("[EXECUTOR] execute signal %d: %v", sig.ID, err)
		}
		if err := s.signals.MarkProcessed(ctx, sig.ID); err != nil {
			logger.Error("[EXECUTOR] mark processed %d: %v", sig.ID, err)
		}
	}

	return nil
}

func (s *Executor) execute(ctx context.Context, sig models.Signal) error {
	span := opentracing.StartSpan("execute_trade")
	defer span.Finish()
	span.SetTag("pattern_id", sig.PatternID.Unix())
	span.SetTag("symbol", sig.Symbol)

	contractType := models.ContractMultDown
	if sig.Direction == models.DirectionBullish {
		contractType = models.ContractMultUp
	}

	balance, err := s.accountBalance(ctx)
	if err != nil {
		return errors.Wrap(err, "get balance")
	}
	logger.Info("[EXECUTOR] balance: $%.2f", balance)

	stake := calc.Stake(balance, s.cfg.BaseStake, s.cfg.StakeIncrement, s.cfg.ProfitMilestone)

	entry := sig.C3.Close
	slPrice := sig.C3.Low - s.cfg.SLBufferPct*sig.C3.Range
	multiplier, err := calc.Multiplier(entry, slPrice, s.cfg.BreathingK, s.cfg.Multipliers)
	if err != nil {
		logger.Info("[EXECUTOR] no valid multiplier for signal %d, skipping", sig.ID)
		return nil
	}

	logger.Info("[EXECUTOR] trade params: %s | entry %.5f | SL $%.2f | TP $%.2f | x%d | stake $%.2f",
		contractType, entry, s.cfg.SLAmountUSD, s.cfg.TPAmountUSD, multiplier, stake)

	res, err := s.placeOrder(ctx, contractType, stake, multiplier)
	if err != nil {
		return errors.Wrap(err, "place order")
	}

	trade := &models.Trade{
		ContractID:    res.ContractID,
		PatternID:     sig.PatternID,
		Symbol:        s.cfg.Symbol,
		Direction:     sig.Direction,
		ContractType:  contractType,
		EntryTime:     time.Now().UTC(),
		EntryPrice:    entry,
		SL:            s.cfg.SLAmountUSD,
		TP:            s.cfg.TPAmountUSD,
		Stake:         stake,
		Multiplier:    multiplier,
		Status:        models.TradeStatusOpen,
		BuyPrice:      res.BuyPrice,
		BalanceBefore: balance,
		C1:            sig.C1,
		C2:            sig.C2,
		C3:            sig.C3,
	}
	if err := s.trades.Insert(ctx, trade); err != nil {
		return errors.Wrap(err, "save trade")
	}

	logger.Info("[EXECUTOR] TRADE PLACED: %d | %s | entry %.5f", trade.ContractID, contractType, entry)
	s.n.Sendf("🚀 %s %s x%d | stake $%.2f | entry %.5f",
		s.cfg.Symbol, contractType, multiplier, stake, entry)
	return nil
}

func (s *Executor) placeOrder(ctx context.Context, contractType string, stake float64, multiplier int) (*deriv.BuyResult, error) {
	if s.cfg.Mode != "live" {
		// paper: брокера не трогаем, контракт синтетический
		return &deriv.BuyResult{
			ContractID: time.Now().UnixNano(),
			BuyPrice:   stake,
		}, nil
	}

	broker := s.currentBroker()
	if broker == nil {
		return nil, errors.New("not connected")
	}

	return broker.Buy(ctx, deriv.BuyParams{
		Symbol:       s.cfg.Symbol,
		ContractType: contractType,
		Stake:        stake,
		Multiplier:   multiplier,
		StopLoss:     s.cfg.SLAmountUSD,
		TakeProfit:   s.cfg.TPAmountUSD,
	})
}

func (s *Executor) accountBalance(ctx context.Context) (float64, error) {
	if s.cfg.Mode == "live" {
		broker := s.currentBroker()
		if broker == nil {
			return 0, errors.New("not connected")
		}
		return broker.Balance(ctx)
	}

	balance, found, err := s.balances.Latest(ctx)
	if err != nil {
		return 0, err
	}
	if !found {
		return paperStartBalance, nil
	}
	return balance, nil
}

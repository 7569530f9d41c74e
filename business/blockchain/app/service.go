package app

import (
	"context"
	"math/big"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/swap-router/business/blockchain/domain"
	venue "github.com/fd1az/swap-router/business/venue/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/logger"
)

const tracerName = "blockchain"

// Config tunes confirmation tracking.
type Config struct {
	Commitment     domain.Commitment
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
}

// Service signs venue-built transactions with the wallet, submits them and
// tracks their confirmation.
type Service struct {
	rpc     RPC
	watcher SignatureWatcher
	key     *domain.Keypair
	cfg     Config
	logger  logger.LoggerInterface
	tracer  trace.Tracer
}

// NewService creates the service. key and watcher may be nil: without a key
// SignAndSubmit fails, without a watcher confirmation is polled.
func NewService(rpc RPC, watcher SignatureWatcher, key *domain.Keypair, cfg Config, log logger.LoggerInterface) *Service {
	if cfg.Commitment == "" {
		cfg.Commitment = domain.CommitmentConfirmed
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 60 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}

	return &Service{
		rpc:     rpc,
		watcher: watcher,
		key:     key,
		cfg:     cfg,
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}
}

// PublicKey returns the wallet address, or "" when no wallet is loaded.
func (s *Service) PublicKey() string {
	if s.key == nil {
		return ""
	}
	return s.key.PublicKey()
}

// HasWallet reports whether a signing key is loaded.
func (s *Service) HasWallet() bool {
	return s.key != nil
}

// SignAndSubmit signs txBase64 with the wallet and sends it.
func (s *Service) SignAndSubmit(ctx context.Context, txBase64 string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "blockchain.sign_and_submit")
	defer span.End()

	if s.key == nil {
		err := apperror.New(apperror.CodeInvalidKey,
			apperror.WithContext("no wallet secret key configured"))
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	signed, sig, err := domain.SignTransactionBase64(txBase64, s.key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "signing failed")
		return "", err
	}
	span.SetAttributes(attribute.String("signature", sig))

	sent, err := s.rpc.SendTransaction(ctx, signed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return "", err
	}
	if sent != "" && sent != sig {
		s.logger.Warn(ctx, "rpc returned a different signature", "signed", sig, "returned", sent)
	}

	s.logger.Info(ctx, "transaction submitted", "signature", sig)
	return sig, nil
}

// AwaitConfirmation waits until signature reaches the configured commitment.
// The watcher is tried first and polling takes over when it fails. A landed
// transaction with an error yields StatusFailed and CONFIRMATION_FAILED; no
// answer within ConfirmTimeout yields StatusPending and SERVICE_TIMEOUT.
func (s *Service) AwaitConfirmation(ctx context.Context, signature string) (venue.Status, error) {
	ctx, span := s.tracer.Start(ctx, "blockchain.await_confirmation",
		trace.WithAttributes(attribute.String("signature", signature)))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ConfirmTimeout)
	defer cancel()

	if s.watcher != nil {
		st, err := s.watcher.Wait(ctx, signature, s.cfg.Commitment)
		if err == nil {
			return s.settle(ctx, signature, st)
		}
		if ctx.Err() != nil {
			return venue.StatusPending, s.timeout(signature, ctx.Err())
		}
		s.logger.Warn(ctx, "signature subscription failed, polling", "signature", signature, "error", err)
	}

	return s.poll(ctx, signature)
}

func (s *Service) poll(ctx context.Context, signature string) (venue.Status, error) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		statuses, err := s.rpc.SignatureStatuses(ctx, signature)
		if err != nil {
			s.logger.Debug(ctx, "signature status poll failed", "signature", signature, "error", err)
		} else if len(statuses) > 0 && statuses[0] != nil {
			st := statuses[0]
			if st.Failed() || st.ConfirmationStatus.Reaches(s.cfg.Commitment) {
				return s.settle(ctx, signature, st)
			}
		}

		select {
		case <-ctx.Done():
			return venue.StatusPending, s.timeout(signature, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (s *Service) settle(ctx context.Context, signature string, st *domain.SignatureStatus) (venue.Status, error) {
	if st.Failed() {
		s.logger.Warn(ctx, "transaction failed on chain", "signature", signature, "error", string(st.Err))
		return venue.StatusFailed, apperror.New(apperror.CodeConfirmationFailed,
			apperror.WithContext(signature+": "+string(st.Err)))
	}
	s.logger.Info(ctx, "transaction confirmed", "signature", signature, "slot", st.Slot)
	return venue.StatusConfirmed, nil
}

func (s *Service) timeout(signature string, cause error) error {
	return apperror.New(apperror.CodeServiceTimeout,
		apperror.WithCause(cause),
		apperror.WithContext("signature "+signature+" not confirmed within "+s.cfg.ConfirmTimeout.String()))
}

// TokenAccountBalance reads an SPL token account through the RPC.
func (s *Service) TokenAccountBalance(ctx context.Context, account string) (*big.Int, uint8, error) {
	return s.rpc.TokenAccountBalance(ctx, account)
}

// Health checks the RPC node. Some providers do not serve getHealth, so a
// successful getLatestBlockhash also counts as healthy.
func (s *Service) Health(ctx context.Context) error {
	err := s.rpc.Health(ctx)
	if err == nil {
		return nil
	}
	if _, bhErr := s.rpc.LatestBlockhash(ctx); bhErr == nil {
		return nil
	}
	return err
}

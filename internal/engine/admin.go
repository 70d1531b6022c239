package engine

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/solvault/vault-engine/internal/storage"
	"github.com/solvault/vault-engine/internal/vault"
)

// InitializeGlobalConfig sets the admin and bot keys. It can only happen
// once; every later operator change goes through SetAdmin or SetBot.
func (e *Engine) InitializeGlobalConfig(ctx context.Context, admin, bot solana.PublicKey) error {
	if admin.IsZero() {
		return ErrInvalidAdminAddress
	}
	if bot.IsZero() {
		return ErrInvalidBotAddress
	}

	existing, err := e.store.LoadGlobalConfig(ctx)
	if err != nil && !errors.Is(err, storage.ErrGlobalConfigNotFound) {
		return err
	}
	if existing != nil && existing.Initialized {
		return ErrGlobalConfigExists
	}

	cfg := &vault.GlobalConfig{
		Admin:       admin,
		Bot:         bot,
		Initialized: true,
	}
	if err := e.store.PersistGlobalConfig(ctx, cfg); err != nil {
		return err
	}

	e.logger.WithFields(logrus.Fields{
		"admin": admin.String(),
		"bot":   bot.String(),
	}).Info("global config initialized")
	return nil
}

// SetBot rotates the trading bot key. Admin only.
func (e *Engine) SetBot(ctx context.Context, caller, newBot solana.PublicKey) error {
	cfg, err := e.loadGlobalConfig(ctx)
	if err != nil {
		return err
	}
	if !caller.Equals(cfg.Admin) {
		return ErrOnlyAdmin
	}
	if newBot.IsZero() {
		return ErrInvalidBotAddress
	}
	if newBot.Equals(cfg.Bot) {
		return ErrSameBotAddress
	}

	cfg.Bot = newBot
	if err := e.store.PersistGlobalConfig(ctx, cfg); err != nil {
		return err
	}

	e.logger.WithField("bot", newBot.String()).Info("bot address updated")
	return nil
}

// SetAdmin hands the admin role to a new key. Admin only.
func (e *Engine) SetAdmin(ctx context.Context, caller, newAdmin solana.PublicKey) error {
	cfg, err := e.loadGlobalConfig(ctx)
	if err != nil {
		return err
	}
	if !caller.Equals(cfg.Admin) {
		return ErrOnlyAdmin
	}
	if newAdmin.IsZero() {
		return ErrInvalidAdminAddress
	}
	if newAdmin.Equals(cfg.Admin) {
		return ErrSameAdminAddress
	}

	cfg.Admin = newAdmin
	if err := e.store.PersistGlobalConfig(ctx, cfg); err != nil {
		return err
	}

	e.logger.WithField("admin", newAdmin.String()).Info("admin address updated")
	return nil
}

func (e *Engine) loadGlobalConfig(ctx context.Context) (*vault.GlobalConfig, error) {
	cfg, err := e.store.LoadGlobalConfig(ctx)
	if errors.Is(err, storage.ErrGlobalConfigNotFound) {
		return nil, ErrGlobalConfigNotInitialized
	}
	if err != nil {
		return nil, err
	}
	if !cfg.Initialized {
		return nil, ErrGlobalConfigNotInitialized
	}
	return cfg, nil
}

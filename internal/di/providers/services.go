package providers

import (
	"github.com/samber/do/v2"

	"github.com/livraria/livraria-api/internal/auth"
	"github.com/livraria/livraria-api/internal/config"
	"github.com/livraria/livraria-api/internal/logger"
	"github.com/livraria/livraria-api/internal/mail"
	"github.com/livraria/livraria-api/internal/service"
	"github.com/livraria/livraria-api/internal/validation"
)

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideMailer provides the account mailer. Without an SMTP host, mails
// are logged so the reset and verification flows still work locally.
func ProvideMailer(i do.Injector) (mail.Mailer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Mail.Host == "" {
		log.Warn("SMTP not configured, mails will only be logged")
		return mail.NewLogMailer(log.Logger), nil
	}

	log.Info("SMTP mailer configured", "host", cfg.Mail.Host, "port", cfg.Mail.Port)
	return mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	}, log.Logger), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	validator := do.MustInvoke[*validation.Validator](i)
	mailer := do.MustInvoke[mail.Mailer](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokenService, validator, mailer, service.AuthConfig{
		AppURL:         cfg.App.URL,
		ResetTokenTTL:  cfg.Auth.ResetTokenTTL,
		VerifyTokenTTL: cfg.Auth.VerifyTokenTTL,
	}, log.Logger), nil
}

// ProvideUserService provides the user administration service.
func ProvideUserService(i do.Injector) (*service.UserService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewUserService(storeHandle.Store, validator, log.Logger), nil
}

// ProvideBookService provides the catalogue service.
func ProvideBookService(i do.Injector) (*service.BookService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	// A nil *search.BookIndex inside the interface would not compare equal
	// to nil.
	var index service.BookIndex
	if indexHandle.Enabled() {
		index = indexHandle.BookIndex
	}

	return service.NewBookService(storeHandle.Store, index, validator, log.Logger), nil
}

// SeedAdmin creates the first administrator when one is configured.
func SeedAdmin(i do.Injector) error {
	cfg := do.MustInvoke[*config.Config](i)
	if cfg.Seed.AdminEmail == "" {
		return nil
	}
	authService := do.MustInvoke[*service.AuthService](i)
	run := do.MustInvoke[RunContext](i)
	log := do.MustInvoke[*logger.Logger](i)

	created, err := authService.EnsureAdmin(run, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword, cfg.Seed.AdminName)
	if err != nil {
		return err
	}
	if created {
		log.Info("Administrator account ready", "email", cfg.Seed.AdminEmail)
	}
	return nil
}

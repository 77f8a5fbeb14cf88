package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/dtunes/internal/identity"
	"github.com/desertthunder/dtunes/internal/server"
	"github.com/desertthunder/dtunes/internal/shared"
	"github.com/desertthunder/dtunes/internal/tasks"
	"github.com/urfave/cli/v3"
)

const defaultSecret = "change-me"

// Serve runs the HTTP API and, when reconcile.interval is set, the background sweep until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int("port"))
	}

	provider, err := r.identityProvider()
	if err != nil {
		return err
	}

	b, err := r.open(ctx)
	if err != nil {
		return err
	}
	machine := r.machine(b)
	srv := server.New(b.Users, machine, r.engine(b), provider, r.logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if interval := r.config.Reconcile.Interval.Std(); interval > 0 {
		sweeper := tasks.NewSweeper(b.Users, machine.Reconciler(), tasks.SweepOpts{
			Workers:   r.config.Reconcile.Workers,
			RateLimit: r.config.Reconcile.RateLimit,
		}, r.logger)

		wg.Add(1)
		go func() {
			defer wg.Done()
			sweeper.Start(ctx, interval)
		}()
	}

	err = srv.ListenAndServe(ctx, cfg)
	cancel()
	wg.Wait()
	return err
}

// identityProvider chains bearer tokens ahead of the trusted header, as configured under [auth].
func (r *Runner) identityProvider() (identity.Provider, error) {
	auth := r.config.Auth
	var chain identity.Chain

	if auth.JWTSecret != "" {
		if auth.JWTSecret == defaultSecret {
			r.logger.Warn("auth.jwt_secret is the example value, set a real secret before exposing the server")
		}
		jwtProvider, err := identity.NewJWTProvider(auth.JWTSecret, auth.Issuer)
		if err != nil {
			return nil, err
		}
		chain = append(chain, jwtProvider)
	}

	if auth.TrustUserHeader {
		r.logger.Warn("trusting the user header, requests can act as any user", "header", identity.UserHeader)
		chain = append(chain, identity.HeaderProvider{})
	}

	if len(chain) == 0 {
		return nil, fmt.Errorf("%w: set auth.jwt_secret or auth.trust_user_header", shared.ErrInvalidConfig)
	}
	return chain, nil
}

// IssueToken prints a signed bearer token for a user.
func (r *Runner) IssueToken(ctx context.Context, cmd *cli.Command) error {
	if r.config.Auth.JWTSecret == "" {
		return fmt.Errorf("%w: auth.jwt_secret", shared.ErrMissingConfig)
	}
	provider, err := identity.NewJWTProvider(r.config.Auth.JWTSecret, r.config.Auth.Issuer)
	if err != nil {
		return err
	}

	b, err := r.open(ctx)
	if err != nil {
		return err
	}
	u, err := resolveUser(ctx, b.Users, cmd.StringArg("user"))
	if err != nil {
		return err
	}

	ttl := cmd.Duration("ttl")
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	token, err := provider.Issue(u.ID(), ttl)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}
	return r.writePlain("%s\n", token)
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ficha-attendance/backend/internal/model"
	"ficha-attendance/backend/pkg/jwt"
	"ficha-attendance/backend/pkg/redis"
)

var tokenRoles = []string{model.RoleAdmin, model.RoleInstructor, model.RoleAccessControl}

// NewTokenCommand 为门禁设备或联调签发 Access Token
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "签发 Access Token（门禁服务账号、联调）",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !validTokenRole(role) {
				return fmt.Errorf("无效的角色 %q，可选 %v", role, tokenRoles)
			}

			cfg, _, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			authCfg := cfg.Auth
			if ttl > 0 {
				authCfg.AccessTokenTTL = ttl
			}

			token, err := jwt.NewManager(&authCfg).GenerateAccessToken(userID, role)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), rootOpts.Format, map[string]string{"access_token": token}, token)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "人员 ID（必填）")
	cmd.Flags().StringVar(&role, "role", model.RoleAccessControl, "角色")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "有效期（默认取 auth.access_token_ttl）")
	_ = cmd.MarkFlagRequired("user")

	cmd.AddCommand(newTokenRevokeCommand(rootOpts))
	return cmd
}

// newTokenRevokeCommand 吊销 Token：写入 Redis 黑名单，TTL 取 Token 剩余有效期
func newTokenRevokeCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		tokenStr string
		jti      string
	)

	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "吊销 Access Token（遗失的门禁设备等）",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (tokenStr == "") == (jti == "") {
				return errors.New("--token 与 --jti 必须且只能提供一个")
			}

			cfg, logger, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ttl := cfg.Auth.AccessTokenTTL
			if tokenStr != "" {
				claims, err := jwt.NewManager(&cfg.Auth).ParseToken(tokenStr)
				if errors.Is(err, jwt.ErrTokenExpired) {
					return printResult(cmd.OutOrStdout(), rootOpts.Format,
						map[string]string{"status": "expired"}, "Token 已过期，无需吊销")
				}
				if err != nil {
					return fmt.Errorf("解析 Token 失败: %w", err)
				}
				jti = claims.ID
				ttl = revokeTTL(claims.ExpiresAt.Time, time.Now())
			}

			rdb, err := redis.NewClient(&cfg.Redis, logger)
			if err != nil {
				return err
			}
			defer rdb.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			if err := rdb.BlacklistToken(ctx, jti, ttl); err != nil {
				return fmt.Errorf("写入黑名单失败: %w", err)
			}
			return printResult(cmd.OutOrStdout(), rootOpts.Format,
				map[string]string{"status": "revoked", "jti": jti}, "已吊销 "+jti)
		},
	}

	cmd.Flags().StringVar(&tokenStr, "token", "", "完整 Access Token")
	cmd.Flags().StringVar(&jti, "jti", "", "Token ID（黑名单保留 auth.access_token_ttl）")
	return cmd
}

// revokeTTL 黑名单保留到 Token 过期；多留一分钟覆盖时钟偏差
func revokeTTL(expiresAt, now time.Time) time.Duration {
	if !expiresAt.After(now) {
		return 0
	}
	return expiresAt.Sub(now) + time.Minute
}

func validTokenRole(role string) bool {
	for _, r := range tokenRoles {
		if r == role {
			return true
		}
	}
	return false
}

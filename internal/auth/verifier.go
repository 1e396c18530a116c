package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// 検証失敗の種別。サービス層でAPIErrorにマッピングする。
var (
	// ErrTokenExpired はトークンの有効期限切れを表す。
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid は署名不正・形式不正などの無効トークンを表す。
	ErrTokenInvalid = errors.New("token invalid")
	// ErrMissingClaims は必須クレーム（sub/email）の欠落を表す。
	ErrMissingClaims = errors.New("required claims missing")
)

// Claims は検証済みトークンから取り出した必須クレーム。
type Claims struct {
	SubjectID string
	Email     string
}

// TokenVerifier はBearerトークンの検証インターフェース。
// 実装はトークンが宣言する署名アルゴリズムに応じて検証方法を選択する。
type TokenVerifier interface {
	// Verify はトークンを検証し、必須クレームを返す。
	Verify(ctx context.Context, tokenString string) (*Claims, error)
}

// VerifierConfig はトークン検証の設定。
type VerifierConfig struct {
	// Secret は対称鍵（HS256）検証用の共有シークレット。
	Secret string
	// JWKSURL は非対称鍵の公開鍵セット取得先。
	JWKSURL string
	// Audience は要求するaudクレーム値。空の場合はaud検証を行わない。
	Audience string
}

// Verifier は対称鍵（HS256）と非対称鍵（RS256/ES256）の両方に対応した
// TokenVerifier実装。トークンヘッダーのalgで検証経路を切り替える。
type Verifier struct {
	config VerifierConfig
	jwks   *jwksCache
}

// NewVerifier はVerifierを生成する。
// httpClientがnilの場合はタイムアウト付きのデフォルトクライアントを使用する。
func NewVerifier(config VerifierConfig, httpClient *http.Client) *Verifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Verifier{
		config: config,
		jwks:   newJWKSCache(httpClient, config.JWKSURL),
	}
}

// Verify はトークンを検証し、必須クレームを返す。
// 期限切れはErrTokenExpired、その他の検証失敗はErrTokenInvalid、
// sub/emailクレームの欠落はErrMissingClaimsでラップして返す。
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "RS256", "ES256"}),
		jwt.WithExpirationRequired(),
	}
	// WithAudience("")はaudクレームが空文字列であることを要求してしまうため、
	// aud検証は設定がある場合のみ有効にする。
	if v.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.config.Audience))
	}
	parser := jwt.NewParser(opts...)

	mapClaims := jwt.MapClaims{}
	_, err := parser.ParseWithClaims(tokenString, mapClaims, func(t *jwt.Token) (any, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodHMAC:
			if v.config.Secret == "" {
				return nil, fmt.Errorf("shared secret is not configured")
			}
			return []byte(v.config.Secret), nil

		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
			kid, _ := t.Header["kid"].(string)
			if strings.TrimSpace(kid) == "" {
				return nil, fmt.Errorf("missing kid header")
			}
			return v.jwks.getKey(ctx, kid)

		default:
			// WithValidMethodsで弾かれるため到達しない
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	sub, _ := mapClaims["sub"].(string)
	email, _ := mapClaims["email"].(string)
	if sub == "" || email == "" {
		return nil, fmt.Errorf("%w: sub=%t email=%t", ErrMissingClaims, sub != "", email != "")
	}

	return &Claims{SubjectID: sub, Email: email}, nil
}

// compile-time interface check
var _ TokenVerifier = (*Verifier)(nil)

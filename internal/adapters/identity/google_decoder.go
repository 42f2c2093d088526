package identity

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sony/gobreaker"

	"github.com/AchilleasB/classroom/signup-engine/internal/config"
	"github.com/AchilleasB/classroom/signup-engine/internal/core/domain"
	"github.com/AchilleasB/classroom/signup-engine/internal/core/ports"
)

const (
	GoogleCertsURL = "https://www.googleapis.com/oauth2/v3/certs"
	keyCacheTTL    = time.Hour
)

var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	jwt.RegisteredClaims
}

type googleJWKS struct {
	Keys []struct {
		Kid string `json:"kid"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

// GoogleDecoder reads the ID token returned by Google Identity Services.
// With verification enabled the RS256 signature, audience and issuer are checked
// against Google's published keys; otherwise only the claims are read.
type GoogleDecoder struct {
	clientID   string
	certsURL   string
	httpClient *http.Client
	verify     bool
	cb         *gobreaker.CircuitBreaker

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

var _ ports.CredentialDecoder = (*GoogleDecoder)(nil)

type Option func(*GoogleDecoder)

func WithCertsURL(url string) Option {
	return func(d *GoogleDecoder) {
		d.certsURL = url
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(d *GoogleDecoder) {
		d.httpClient = c
	}
}

// WithoutVerification reads claims without checking the signature. The account
// API re-verifies the credential server-side.
func WithoutVerification() Option {
	return func(d *GoogleDecoder) {
		d.verify = false
	}
}

func NewGoogleDecoder(clientID string, opts ...Option) *GoogleDecoder {
	d := &GoogleDecoder{
		clientID:   clientID,
		certsURL:   GoogleCertsURL,
		httpClient: http.DefaultClient,
		verify:     true,
		cb:         config.NewCircuitBreaker("Google-JWKS"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *GoogleDecoder) Decode(ctx context.Context, rawCredential string) (domain.ExternalIdentity, error) {
	claims := &googleClaims{}

	if d.verify {
		parserOpts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256"}), jwt.WithExpirationRequired()}
		if d.clientID != "" {
			parserOpts = append(parserOpts, jwt.WithAudience(d.clientID))
		}
		_, err := jwt.ParseWithClaims(rawCredential, claims, func(t *jwt.Token) (interface{}, error) {
			kid, _ := t.Header["kid"].(string)
			return d.key(ctx, kid)
		}, parserOpts...)
		if err != nil {
			return domain.ExternalIdentity{}, fmt.Errorf("parse google credential: %w", err)
		}
		if !validIssuer(claims.Issuer) {
			return domain.ExternalIdentity{}, fmt.Errorf("unexpected issuer %q", claims.Issuer)
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(rawCredential, claims); err != nil {
			return domain.ExternalIdentity{}, fmt.Errorf("parse google credential: %w", err)
		}
	}

	if claims.Subject == "" {
		return domain.ExternalIdentity{}, errors.New("credential has no subject")
	}
	if claims.Email == "" || !claims.EmailVerified {
		return domain.ExternalIdentity{}, errors.New("email not verified")
	}

	return domain.ExternalIdentity{
		Name:      claims.Name,
		Email:     claims.Email,
		SubjectID: claims.Subject,
	}, nil
}

func (d *GoogleDecoder) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.keys == nil || time.Since(d.fetchedAt) > keyCacheTTL || d.keys[kid] == nil {
		keys, err := d.fetchKeys(ctx)
		if err != nil {
			return nil, err
		}
		d.keys = keys
		d.fetchedAt = time.Now()
	}

	key, ok := d.keys[kid]
	if !ok {
		return nil, errors.New("key not found")
	}
	return key, nil
}

func (d *GoogleDecoder) fetchKeys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	res, err := d.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.certsURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := d.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("jwks endpoint returned %d", resp.StatusCode)
		}

		var jwks googleJWKS
		if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
			return nil, err
		}
		return jwks, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch google keys: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey)
	for _, k := range res.(googleJWKS).Keys {
		nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			continue
		}
		eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			continue
		}

		var e int
		for _, b := range eBytes {
			e = e<<8 + int(b)
		}

		keys[k.Kid] = &rsa.PublicKey{
			N: new(big.Int).SetBytes(nBytes),
			E: e,
		}
	}
	return keys, nil
}

func validIssuer(iss string) bool {
	for _, v := range googleIssuers {
		if iss == v {
			return true
		}
	}
	return false
}

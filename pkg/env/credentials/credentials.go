package credentials

import (
	"encoding/base64"
	"os"

	"github.com/app-sre/connect-ai/pkg/env"
)

const (
	identityVariable = "CONNECT_AI_EMAIL"
	secretVariable   = "CONNECT_AI_TOKEN"
)

type Env struct {
	Identity string
	Secret   string
}

func NewCredentialsEnv() *Env {
	return &Env{}
}

func (c *Env) Populate() error {
	identity := os.Getenv(identityVariable)
	if identity == "" {
		return &env.Error{Name: identityVariable}
	}
	c.Identity = identity

	secret := os.Getenv(secretVariable)
	if secret == "" {
		return &env.Error{Name: secretVariable}
	}
	c.Secret = secret

	return nil
}

// BasicAuth returns the value for an HTTP Basic Authorization header,
// without the scheme prefix.
func (c *Env) BasicAuth() string {
	return base64.StdEncoding.EncodeToString([]byte(c.Identity + ":" + c.Secret))
}

// Load reads the credentials from the environment. It is called for every
// request, so rotated credentials are picked up without a restart.
func Load() (*Env, error) {
	c := NewCredentialsEnv()
	if err := c.Populate(); err != nil {
		return nil, err
	}
	return c, nil
}

package identity

import (
	"time"

	"github.com/skyward-cloud/gatehouse/core"
)

// Request and response shapes for the identity service's JSON API.

type authRequest struct {
	Auth struct {
		Identity struct {
			Methods  []string        `json:"methods"`
			Password *passwordMethod `json:"password,omitempty"`
			TOTP     *totpMethod     `json:"totp,omitempty"`
			Token    *tokenMethod    `json:"token,omitempty"`
		} `json:"identity"`
		Scope any `json:"scope,omitempty"`
	} `json:"auth"`
}

type passwordMethod struct {
	User userCredential `json:"user"`
}

type totpMethod struct {
	User userCredential `json:"user"`
}

type tokenMethod struct {
	ID string `json:"id"`
}

type userCredential struct {
	Name     string    `json:"name"`
	Domain   domainRef `json:"domain"`
	Password string    `json:"password,omitempty"`
	Passcode string    `json:"passcode,omitempty"`
}

type domainRef struct {
	Name string `json:"name,omitempty"`
}

type projectScope struct {
	Project struct {
		ID string `json:"id"`
	} `json:"project"`
}

type domainScope struct {
	Domain domainRef `json:"domain"`
}

type tokenResponse struct {
	Token struct {
		ExpiresAt time.Time `json:"expires_at"`
		User      struct {
			ID     string    `json:"id"`
			Name   string    `json:"name"`
			Domain domainRef `json:"domain"`
		} `json:"user"`
		Project struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"project"`
		Roles []struct {
			Name string `json:"name"`
		} `json:"roles"`
		Catalog []catalogEntry `json:"catalog"`
	} `json:"token"`
}

type catalogEntry struct {
	Type      string `json:"type"`
	Endpoints []struct {
		Region    string `json:"region"`
		Interface string `json:"interface"`
		URL       string `json:"url"`
	} `json:"endpoints"`
}

type deviceRequest struct {
	UserName   string `json:"user_name"`
	DomainName string `json:"domain_name"`
	DeviceID   string `json:"device_id,omitempty"`
}

type deviceResponse struct {
	DeviceID    string `json:"device_id"`
	DeviceToken string `json:"device_token"`
}

// scopeBody picks the wire shape for a scope: project scope wins over domain
// scope, and an empty scope is omitted (unscoped authentication).
func scopeBody(scope core.Scope) any {
	if scope.ProjectID != "" {
		body := projectScope{}
		body.Project.ID = scope.ProjectID
		return body
	}
	if scope.DomainName != "" {
		return domainScope{Domain: domainRef{Name: scope.DomainName}}
	}
	return nil
}

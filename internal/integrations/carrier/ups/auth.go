package ups

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

const tokenPath = "/security/v1/oauth/token"

// ObtainToken exchanges client credentials for a bearer token with the
// client_credentials grant. The credential is returned as is and never cached.
func (c *Client) ObtainToken(ctx context.Context, merchantID, clientID, clientSecret string, env Environment) (*Credential, error) {
	env, err := env.normalize()
	if err != nil {
		return nil, err
	}
	switch {
	case merchantID == "":
		return nil, &ConfigurationError{Reason: "merchant id is required to obtain a token"}
	case clientID == "":
		return nil, &ConfigurationError{Reason: "client id is required to obtain a token"}
	case clientSecret == "":
		return nil, &ConfigurationError{Reason: "client secret is required to obtain a token"}
	}

	c.logger.Debug("ups token request", "environment", env)

	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader("Authorization", basicAuthorization(clientID, clientSecret)).
		SetHeader("x-merchant-id", merchantID).
		SetHeader("Accept", "application/json").
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		Post(c.baseURL(env) + tokenPath)
	if err != nil {
		return nil, errors.Wrap(err, "ups token request")
	}

	if !resp.IsSuccess() {
		authErr := &AuthenticationError{StatusCode: resp.StatusCode(), Status: resp.Status()}
		if envl, ok := ParseErrorEnvelope(resp.Body()); ok {
			authErr.Details = envl.Errors
		}
		return nil, authErr
	}
	return decodeCredential(resp)
}

func basicAuthorization(clientID, clientSecret string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(clientID+":"+clientSecret))
}

func decodeCredential(resp *resty.Response) (*Credential, error) {
	dec := json.NewDecoder(bytes.NewReader(resp.Body()))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, protocolError(resp, "malformed token response", err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, protocolError(resp, "token response is not an object", nil)
	}

	b, err := json.Marshal(camelizeKeys(obj))
	if err != nil {
		return nil, protocolError(resp, "re-encode token response", err)
	}
	var cred Credential
	if err := json.Unmarshal(b, &cred); err != nil {
		return nil, protocolError(resp, "unexpected token response shape", err)
	}
	if err := validate.Struct(cred); err != nil {
		return nil, protocolError(resp, "unexpected token response shape", err)
	}
	return &cred, nil
}

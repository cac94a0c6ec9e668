package domain

// Store keys for the per-user credential fields. Secret-marked keys only ever
// hold ciphertext; the vault is the single read/write path for them.
const (
	KeyToken          = "token"            // secret
	KeyRefreshToken   = "refresh_token"    // secret
	KeyTokenExpiresAt = "token_expires_at" // unix seconds, plain
	KeyOAuthState     = "oauth_state"
	KeyOAuthOrigin    = "oauth_origin"
	KeyRedirectURI    = "redirect_uri"
	KeyScope          = "scope"
	KeyUserID         = "user_id"
	KeyUserName       = "user_name"
	KeyTeamID         = "team_id"
	KeyTeamName       = "team_name"
)

// App-scope store keys. Client credentials are admin-managed and encrypted;
// OAuth capability is derived from both being non-empty, never flagged.
const (
	KeyClientID     = "client_id"     // secret
	KeyClientSecret = "client_secret" // secret
	KeyUsePopup     = "use_popup"
)

// IdentityKeys are the per-user display identity fields populated from the
// provider's "who am I" lookup and cleared together on disconnect.
var IdentityKeys = []string{KeyUserID, KeyUserName, KeyTeamID, KeyTeamName}

// TokenResponse models the provider token endpoint payload. Raw keeps the
// undeclared fields (user_id, team_id, ...) the provider returns alongside
// the token pair.
type TokenResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresIn    int64          `json:"expires_in"`
	TokenType    string         `json:"token_type"`
	Scope        string         `json:"scope"`
	Error        string         `json:"error"`
	ErrorDesc    string         `json:"error_description"`
	Raw          map[string]any `json:"-"`
}

// Identity is the display identity stored after a successful connection.
type Identity struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	TeamID   string `json:"team_id"`
	TeamName string `json:"team_name"`
}

// This file contains the expected structure of incoming requests to the API. These
// structs are used to validate incoming requests and to pass data to the appropriate
// handlers.
//
// Note that none of the structs carry the admin user id; it is extracted from the
// JWT token by the web layer.

package common

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UpdatePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

type SaveRuleRequest struct {
	RuleName string `json:"rule_name" validate:"required,rulename"`
	Query    string `json:"query"`
	Language string `json:"language" validate:"omitempty,len=2"`
}

type GetRuleRequest struct {
	RuleName string `params:"name" validate:"required,rulename"`
}

type GetRuleHistoryRequest struct {
	RuleName string `params:"name" validate:"required,rulename"`
	Days     int64  `query:"days" validate:"omitempty,min=1,max=365"`
}

type TriggerTwawlRequest struct {
	RuleName   string `params:"name" validate:"required,rulename"`
	Init       bool   `query:"init"`
	OAuthToken string `query:"oauth_token"`
	// Account twawls with the latest token authorized by this twitter account.
	Account string `query:"account"`
}

type OAuthCallbackRequest struct {
	OAuthToken    string `query:"oauth_token" validate:"required"`
	OAuthVerifier string `query:"oauth_verifier" validate:"required"`
}

type ProxyFetchRequest struct {
	URI string `query:"uri" validate:"required,uri"`
}

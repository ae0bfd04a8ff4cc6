package models

type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type UserProfile struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type RegisterResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        UserProfile `json:"user"`
}

type ProtectedResponse struct {
	Message string `json:"message"`
	User    string `json:"user"`
}

type NoteCreateRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func NewUserProfile(u *User) UserProfile {
	p := UserProfile{ID: u.ID, Email: u.Email}
	if u.Name != nil {
		p.Name = *u.Name
	}
	return p
}

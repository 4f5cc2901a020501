package models

type Login struct {
	Email    string `json:"email" bson:"email" binding:"required"`
	Password string `json:"password" bson:"password" binding:"required"`
}

// Signup is bound from the multipart signup form.
type Signup struct {
	FirstName  string `form:"firstName"`
	LastName   string `form:"lastName"`
	Name       string `form:"name"`
	Email      string `form:"email" binding:"required,email"`
	Password   string `form:"password" binding:"required"`
	Profession string `form:"profession" binding:"required"`
	Template   string `form:"template" binding:"required"`
}

type AuthResponse struct {
	Doctor *Doctor `json:"doctor"`
	Token  string  `json:"token"`
}

type ResetPassword struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

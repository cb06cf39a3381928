package domain

import "net/mail"

// User is a roster identity that can author or receive messages.
type User struct {
	Id          UserId `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	Email       Email  `json:"email"`
	Active      bool   `json:"-"`
}

// Address is the display form used in To and Reply-To headers.
func (u User) Address() mail.Address {
	return mail.Address{Name: u.DisplayName, Address: u.Email}
}

func (u User) String() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

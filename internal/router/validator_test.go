package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sampleRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Method   string `json:"method" validate:"omitempty,oneof=card pix"`
}

func TestCustomValidator_NamesJSONField(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name string
		req  sampleRequest
		want string
	}{
		{"missing email", sampleRequest{Password: "secret1"}, "email is required"},
		{"bad email", sampleRequest{Email: "nope", Password: "secret1"}, "email must be a valid email"},
		{"short password", sampleRequest{Email: "a@x.com", Password: "123"}, "password must be at least 6 characters"},
		{"bad method", sampleRequest{Email: "a@x.com", Password: "secret1", Method: "cash"}, "method must be one of: card pix"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.req)
			if assert.Error(t, err) {
				assert.Equal(t, tt.want, err.Error())
			}
		})
	}

	assert.NoError(t, v.Validate(&sampleRequest{Email: "a@x.com", Password: "secret1"}))
}

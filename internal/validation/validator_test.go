package validation

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/livraria/livraria-api/internal/errors"
)

type testAddress struct {
	CEP string `json:"cep" validate:"omitempty,len=8"`
}

type testRequest struct {
	Email    string       `json:"email" validate:"required,email"`
	Password string       `json:"senha" validate:"required,min=6,max=128"`
	Name     string       `json:"nome" validate:"required"`
	Year     int          `json:"anoPublicacao,omitempty" validate:"omitempty,min=1,notfuture_year"`
	ISBN     string       `json:"isbn,omitempty" validate:"omitempty,isbn_loose"`
	Owner    string       `json:"criadoPor,omitempty" validate:"omitempty,objectid"`
	Price    *float64     `json:"preco,omitempty" validate:"omitempty,gte=0"`
	Born     *time.Time   `json:"dataNascimento,omitempty" validate:"omitempty,past_date"`
	Address  *testAddress `json:"endereco,omitempty"`
}

func validRequest() testRequest {
	return testRequest{Email: "ana@livraria.com", Password: "segredo1", Name: "Ana"}
}

func fieldErrors(t *testing.T, err error) []FieldError {
	t.Helper()
	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())
	details, ok := domainErr.Details.([]FieldError)
	require.True(t, ok)
	return details
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := New()
	req := validRequest()
	req.Year = 1899
	req.ISBN = "978-85-359-0277-X"
	req.Owner = "507f1f77bcf86cd799439011"

	assert.NoError(t, v.Validate(req))
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := New()
	v.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	negative := -1.0
	future := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		mutate    func(*testRequest)
		wantField string
	}{
		{"missing name", func(r *testRequest) { r.Name = "" }, "nome"},
		{"invalid email", func(r *testRequest) { r.Email = "not-an-email" }, "email"},
		{"short password", func(r *testRequest) { r.Password = "abc" }, "senha"},
		{"future year", func(r *testRequest) { r.Year = 2026 }, "anoPublicacao"},
		{"bad isbn", func(r *testRequest) { r.ISBN = "ABC" }, "isbn"},
		{"bad object id", func(r *testRequest) { r.Owner = "123" }, "criadoPor"},
		{"negative price", func(r *testRequest) { r.Price = &negative }, "preco"},
		{"future birth date", func(r *testRequest) { r.Born = &future }, "dataNascimento"},
		{"nested field", func(r *testRequest) { r.Address = &testAddress{CEP: "123"} }, "endereco.cep"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			errs := fieldErrors(t, v.Validate(req))
			require.Len(t, errs, 1)
			assert.Equal(t, tt.wantField, errs[0].Field)
			assert.NotEmpty(t, errs[0].Message)
		})
	}
}

func TestValidator_CollectsEveryField(t *testing.T) {
	errs := fieldErrors(t, New().Validate(testRequest{}))

	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"email", "senha", "nome"}, fields)
}

func TestValidator_FriendlyMessages(t *testing.T) {
	req := validRequest()
	req.Password = "abc"

	errs := fieldErrors(t, New().Validate(req))
	assert.Equal(t, "deve ter pelo menos 6 caracteres", errs[0].Message)
}

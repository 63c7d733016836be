package dto

// LoginRequest accepts "cpf" as an alias for identifier.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	CPF        string `json:"cpf"`
	Password   string `json:"password"`
}

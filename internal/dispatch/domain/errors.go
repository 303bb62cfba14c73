package domain

import "errors"

var (
	// ErrInvalidCredentials возникает при неверной паре логин/пароль
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidTransition возникает при попытке перехода из состояния,
	// которое его не допускает
	ErrInvalidTransition = errors.New("invalid service transition")

	// ErrServiceNotFound возникает, когда сервис не найден
	ErrServiceNotFound = errors.New("service not found")

	// ErrRiderNotFound возникает, когда курьер не найден
	ErrRiderNotFound = errors.New("rider not found")

	// ErrCustomerNotFound возникает, когда клиент не найден
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrNoSession возникает, когда операция требует активной сессии
	ErrNoSession = errors.New("no active session")

	// ErrForbidden возникает, когда роль сессии не допускает операцию
	ErrForbidden = errors.New("operation not allowed for this role")
)

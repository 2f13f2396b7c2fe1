// test/mocks/mocks.go

// Package mocks contains generated mocks for the application's interfaces.
// To regenerate mocks, run `make mocks` from the root directory.
package mocks

//go:generate mockgen -source=../../internal/core/ports/remote_cart.go -destination=remote_cart_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/draft_repository.go -destination=draft_repository_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/session.go -destination=session_mock.go -package=mocks

package handler

import (
	"relaychat/internal/app/channel"
	"relaychat/internal/app/chat"
	"relaychat/internal/app/store"
	"relaychat/internal/app/storage"
	"relaychat/internal/configs"
	"relaychat/internal/pkg/pow"
)

// AppDeps bundles the shared collaborators handed to every HTTP handler.
type AppDeps struct {
	Hub      *chat.Hub
	Registry *channel.Registry
	Store    store.Store
	Config   *configs.AppConfig

	// StorageService is nil when no S3 configuration was supplied; the
	// attachment presign routes are not mounted in that case.
	StorageService storage.StorageService

	Pow *pow.PoWManager
}

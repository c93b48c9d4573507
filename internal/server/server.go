package server

// Server объединяет HTTP-серверы магазина, гачи и администрирования.
type Server struct {
	ShopServer
	GachaServer
	AdminServer

	adminToken string
}

func NewServer(
	shopServer ShopServer,
	gachaServer GachaServer,
	adminServer AdminServer,
	adminToken string,
) Server {
	return Server{
		ShopServer:  shopServer,
		GachaServer: gachaServer,
		AdminServer: adminServer,
		adminToken:  adminToken,
	}
}

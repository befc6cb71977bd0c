package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go-pharmacy-inventory/internal/config"
	"go-pharmacy-inventory/internal/handler"
	"go-pharmacy-inventory/internal/middleware"
	"go-pharmacy-inventory/internal/model"
	"go-pharmacy-inventory/internal/repository"
	"go-pharmacy-inventory/internal/service"
	"go-pharmacy-inventory/internal/ws"
	"go-pharmacy-inventory/pkg/database"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}
	cfg := config.Load()

	// 2. Setup Database
	db := database.ConnectDB()
	db.AutoMigrate(
		&model.Category{}, &model.Medicine{}, &model.Supplier{}, &model.MedicineBatch{},
		&model.Purchase{}, &model.PurchaseItem{}, &model.Sale{}, &model.SaleItem{},
		&model.User{}, &model.Privilege{}, &model.Role{},
	)

	// 3. Seed default privileges, roles, and admin user
	seedPrivilegesRolesAndAdmin(db)

	// 4. Setup WebSocket Hub
	wsHub := ws.NewHub()
	go wsHub.Run()

	// 5. Dependency Injection (Wiring Layers)
	medicineRepo := repository.NewMedicineRepo(db)
	categoryRepo := repository.NewCategoryRepo(db)
	supplierRepo := repository.NewSupplierRepo(db)
	batchRepo := repository.NewBatchRepo(db)
	purchaseRepo := repository.NewPurchaseRepo(db)
	saleRepo := repository.NewSaleRepo(db)
	reportRepo := repository.NewReportRepo(db)
	userRepo := repository.NewUserRepo(db)
	privilegeRepo := repository.NewPrivilegeRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	stockStore := repository.NewStockStore(db)

	invService := service.NewInventoryService(medicineRepo, batchRepo, supplierRepo, categoryRepo)
	saleService := service.NewSaleService(stockStore, saleRepo, cfg.TaxRateBps, wsHub)
	purchaseService := service.NewPurchaseService(purchaseRepo, medicineRepo, supplierRepo, stockStore, wsHub)
	reportService := service.NewReportService(reportRepo, cfg.NearExpiryDays)
	authService := service.NewAuthService(userRepo, wsHub)
	userService := service.NewUserService(userRepo, privilegeRepo, roleRepo)

	medicineHandler := handler.NewMedicineHandler(invService)
	saleHandler := handler.NewSaleHandler(saleService)
	purchaseHandler := handler.NewPurchaseHandler(purchaseService)
	reportHandler := handler.NewReportHandler(reportService)
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	roleHandler := handler.NewRoleHandler(roleRepo)

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "Pharmacy Inventory v1.0",
	})

	// Middleware
	app.Use(logger.New())  // Logging request
	app.Use(recover.New()) // Panic recovery
	app.Use(cors.New())    // CORS

	// 7. Routes
	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/reset-password", authHandler.ResetPassword)
	auth.Post("/validate-token", authHandler.ValidateToken)
	auth.Post("/heartbeat", middleware.RequireAuth(userRepo), authHandler.Heartbeat)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireAuth(userRepo))

	// Dashboard
	protected.Get("/dashboard/stats", middleware.RequirePrivilege("dashboard:view"), reportHandler.GetDashboardStats)

	// Medicines
	protected.Get("/medicines", middleware.RequirePrivilege("medicine:view"), medicineHandler.GetMedicines)
	protected.Get("/medicines/:id", middleware.RequirePrivilege("medicine:view"), medicineHandler.GetMedicine)
	protected.Get("/medicines/:id/stock", middleware.RequirePrivilege("medicine:view"), medicineHandler.GetMedicineStock)
	protected.Get("/medicines/:id/batches", middleware.RequirePrivilege("medicine:view"), medicineHandler.GetMedicineBatches)
	protected.Post("/medicines", middleware.RequirePrivilege("medicine:create"), medicineHandler.CreateMedicine)
	protected.Put("/medicines/:id", middleware.RequirePrivilege("medicine:update"), medicineHandler.UpdateMedicine)
	protected.Delete("/medicines/:id", middleware.RequirePrivilege("medicine:delete"), medicineHandler.DeactivateMedicine)

	// Categories
	protected.Get("/categories", middleware.RequirePrivilege("medicine:view"), medicineHandler.GetCategories)
	protected.Post("/categories", middleware.RequirePrivilege("medicine:create"), medicineHandler.CreateCategory)

	// Suppliers
	protected.Get("/suppliers", middleware.RequirePrivilege("supplier:view"), medicineHandler.GetSuppliers)
	protected.Post("/suppliers", middleware.RequirePrivilege("supplier:create"), medicineHandler.CreateSupplier)
	protected.Put("/suppliers/:id", middleware.RequirePrivilege("supplier:update"), medicineHandler.UpdateSupplier)

	// Purchases
	protected.Get("/purchases", middleware.RequirePrivilege("purchase:view"), purchaseHandler.GetPurchases)
	protected.Get("/purchases/:id", middleware.RequirePrivilege("purchase:view"), purchaseHandler.GetPurchase)
	protected.Post("/purchases", middleware.RequirePrivilege("purchase:create"), purchaseHandler.CreatePurchase)
	protected.Post("/purchases/:id/receive", middleware.RequirePrivilege("purchase:receive"), purchaseHandler.ReceivePurchase)
	protected.Post("/purchases/:id/cancel", middleware.RequirePrivilege("purchase:cancel"), purchaseHandler.CancelPurchase)

	// Sales
	protected.Get("/sales", middleware.RequirePrivilege("sale:view"), saleHandler.GetSales)
	protected.Get("/sales/:id", middleware.RequirePrivilege("sale:view"), saleHandler.GetSale)
	protected.Post("/sales", middleware.RequirePrivilege("sale:create"), saleHandler.CreateSale)
	protected.Post("/sales/:id/cancel", middleware.RequirePrivilege("sale:cancel"), saleHandler.CancelSale)

	// Reports
	protected.Get("/reports/near-expiry", middleware.RequirePrivilege("report:view"), reportHandler.GetNearExpiry)
	protected.Get("/reports/expired", middleware.RequirePrivilege("report:view"), reportHandler.GetExpired)
	protected.Get("/reports/low-stock", middleware.RequirePrivilege("report:view"), reportHandler.GetLowStock)
	protected.Get("/reports/revenue/daily", middleware.RequirePrivilege("report:view"), reportHandler.GetDailyRevenue)
	protected.Get("/reports/revenue/monthly", middleware.RequirePrivilege("report:view"), reportHandler.GetMonthlyRevenue)

	// User Management
	protected.Get("/users", userHandler.GetUsers)
	protected.Get("/users/:id", userHandler.GetUser)
	protected.Post("/users", middleware.RequirePrivilege("user:create"), userHandler.CreateUser)
	protected.Put("/users/:id", middleware.RequirePrivilege("user:update"), userHandler.UpdateUser)
	protected.Delete("/users/:id", middleware.RequirePrivilege("user:delete"), userHandler.DeleteUser)
	protected.Put("/users/:id/privileges", middleware.RequirePrivilege("user:update_privilege"), userHandler.UpdateUserPrivileges)

	// Roles & Privileges
	protected.Get("/roles", roleHandler.GetRoles)
	protected.Get("/privileges", func(c *fiber.Ctx) error {
		privileges, err := privilegeRepo.FindAll()
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch privileges"})
		}
		return c.JSON(privileges)
	})

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHub.Register <- c
		defer func() { wsHub.Unregister <- c }()

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 8. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Panic(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}

// seedPrivilegesRolesAndAdmin creates default privileges, roles, and admin user if they don't exist
func seedPrivilegesRolesAndAdmin(db *gorm.DB) {
	privilegeRepo := repository.NewPrivilegeRepo(db)
	userRepo := repository.NewUserRepo(db)
	roleRepo := repository.NewRoleRepo(db)

	// 1. Seed privileges first
	if err := privilegeRepo.SeedDefaults(); err != nil {
		log.Printf("Warning: Failed to seed privileges: %v", err)
	}

	// 2. Seed roles
	if err := roleRepo.SeedDefaults(); err != nil {
		log.Printf("Warning: Failed to seed roles: %v", err)
	}

	// 3. Assign privileges to roles
	allPrivileges, _ := privilegeRepo.FindAll()

	// MASTER_ADMIN gets ALL privileges
	masterRole, err := roleRepo.FindByCode(model.RoleMasterAdmin)
	if err == nil && len(masterRole.Privileges) == 0 {
		roleRepo.ReplacePrivileges(masterRole, allPrivileges)
		log.Println("MASTER_ADMIN role assigned all privileges")
	}

	// PHARMACIST gets everything except user management
	pharmacistRole, err := roleRepo.FindByCode(model.RolePharmacist)
	if err == nil && len(pharmacistRole.Privileges) == 0 {
		pharmacistPrivileges := []model.Privilege{}
		for _, p := range allPrivileges {
			if !strings.HasPrefix(p.Code, "user:") {
				pharmacistPrivileges = append(pharmacistPrivileges, p)
			}
		}
		roleRepo.ReplacePrivileges(pharmacistRole, pharmacistPrivileges)
		log.Println("PHARMACIST role assigned inventory privileges")
	}

	// CASHIER gets the point-of-sale subset
	cashierRole, err := roleRepo.FindByCode(model.RoleCashier)
	if err == nil && len(cashierRole.Privileges) == 0 {
		cashierPrivileges, err := privilegeRepo.FindByCodes(model.CashierPrivilegeCodes)
		if err == nil {
			roleRepo.ReplacePrivileges(cashierRole, cashierPrivileges)
			log.Println("CASHIER role assigned point-of-sale privileges")
		}
	}

	// 4. Create default admin user with MASTER_ADMIN role
	_, err = userRepo.FindByEmail("admin@example.com")
	if err != nil {
		masterRole, _ := roleRepo.FindByCode(model.RoleMasterAdmin)

		admin := &model.User{
			Email:       "admin@example.com",
			FullName:    "Master Administrator",
			PhoneNumber: "",
			RoleID:      &masterRole.ID,
			IsActive:    true,
			Privileges:  masterRole.Privileges,
		}
		admin.CreatedBy = "system"
		admin.UpdatedBy = "system"

		if err := admin.SetPassword("admin123"); err != nil {
			log.Printf("Warning: Failed to hash admin password: %v", err)
			return
		}

		if err := userRepo.Create(admin); err != nil {
			log.Printf("Warning: Failed to create admin user: %v", err)
		} else {
			log.Println("Admin user created: admin@example.com / admin123 (MASTER_ADMIN)")
		}
	}
}

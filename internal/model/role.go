package model

// Role represents user roles in the system
type Role struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Code        string      `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // MASTER_ADMIN, PHARMACIST, CASHIER
	Name        string      `gorm:"type:varchar(100)" json:"name"`
	Description string      `gorm:"type:text" json:"description"`
	Privileges  []Privilege `gorm:"many2many:role_privileges;" json:"privileges,omitempty"`
}

// Role codes as constants
const (
	RoleMasterAdmin = "MASTER_ADMIN"
	RolePharmacist  = "PHARMACIST"
	RoleCashier     = "CASHIER"
)

// DefaultRoles defines the default roles in the system
var DefaultRoles = []Role{
	{
		Code:        RoleMasterAdmin,
		Name:        "Master Administrator",
		Description: "Full system access with all privileges",
	},
	{
		Code:        RolePharmacist,
		Name:        "Pharmacist",
		Description: "Inventory, purchasing, sales and reporting access",
	},
	{
		Code:        RoleCashier,
		Name:        "Cashier",
		Description: "Point of sale access only",
	},
}

// CashierPrivilegeCodes lists the privileges granted to the CASHIER role
var CashierPrivilegeCodes = []string{
	"medicine:view",
	"sale:view",
	"sale:create",
	"dashboard:view",
}

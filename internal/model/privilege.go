package model

// Privilege represents a permission that can be assigned to users.
// Every protected route names one of these codes; there is no superuser
// bypass outside the privilege set itself.
type Privilege struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // e.g., "sale:create"
	Name string `gorm:"type:varchar(100)" json:"name"`
}

// Default privileges for the system
var DefaultPrivileges = []Privilege{
	// User management
	{Code: "user:view", Name: "View User"},
	{Code: "user:create", Name: "Create User"},
	{Code: "user:update", Name: "Update User"},
	{Code: "user:delete", Name: "Delete User"},
	{Code: "user:update_privilege", Name: "Update User Privileges"},
	// Medicine management
	{Code: "medicine:view", Name: "View Medicine"},
	{Code: "medicine:create", Name: "Create Medicine"},
	{Code: "medicine:update", Name: "Update Medicine"},
	{Code: "medicine:delete", Name: "Delete Medicine"},
	// Supplier management
	{Code: "supplier:view", Name: "View Supplier"},
	{Code: "supplier:create", Name: "Create Supplier"},
	{Code: "supplier:update", Name: "Update Supplier"},
	// Purchase management
	{Code: "purchase:view", Name: "View Purchase"},
	{Code: "purchase:create", Name: "Create Purchase"},
	{Code: "purchase:receive", Name: "Receive Purchase"},
	{Code: "purchase:cancel", Name: "Cancel Purchase"},
	// Sales
	{Code: "sale:view", Name: "View Sale"},
	{Code: "sale:create", Name: "Create Sale"},
	{Code: "sale:cancel", Name: "Cancel Sale"},
	// Reporting
	{Code: "report:view", Name: "View Reports"},
	{Code: "dashboard:view", Name: "View Dashboard"},
}

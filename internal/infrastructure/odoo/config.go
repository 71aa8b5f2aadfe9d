package odoo

import (
	"errors"
	"strings"
	"time"
)

// Odoo web client endpoints.
const (
	pathAuthenticate = "/web/session/authenticate"
	pathCallKW       = "/web/dataset/call_kw"
)

// Defaults applied by Validate.
const (
	DefaultTimeout   = 10 * time.Second
	DefaultPartnerID = int64(1)
	DefaultSKUField  = "default_code"
)

// Config errors
var (
	ErrOdooConfigMissingURL      = errors.New("odoo: base url is required")
	ErrOdooConfigMissingDatabase = errors.New("odoo: database is required")
	ErrOdooConfigMissingUsername = errors.New("odoo: username is required")
	ErrOdooConfigMissingPassword = errors.New("odoo: password is required")
)

// Config holds the connection settings for one Odoo instance.
type Config struct {
	// BaseURL is the Odoo root, e.g. http://odoo:8069
	BaseURL string
	// Database is the Odoo database (tenant) name
	Database string
	Username string
	Password string

	// Timeout bounds each HTTP round trip
	Timeout time.Duration

	// DefaultPartnerID is the customer used when the request names none
	DefaultPartnerID int64
	// DefaultPricelistID is sent with sale orders when set
	DefaultPricelistID *int64

	// DefaultPOSSessionID is used by POS checkouts that name no session
	DefaultPOSSessionID *int64
	// CreatePOSDraft submits POS orders as unpaid drafts
	CreatePOSDraft bool

	// SKUField is the product.product field SKUs are matched against
	// (default_code, barcode, ...)
	SKUField string
}

// NewConfig returns a Config with defaults filled in.
func NewConfig(baseURL, database, username, password string) *Config {
	return &Config{
		BaseURL:          baseURL,
		Database:         database,
		Username:         username,
		Password:         password,
		Timeout:          DefaultTimeout,
		DefaultPartnerID: DefaultPartnerID,
		CreatePOSDraft:   true,
		SKUField:         DefaultSKUField,
	}
}

// Validate checks required fields and fills defaults.
func (c *Config) Validate() error {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		return ErrOdooConfigMissingURL
	}
	if c.Database == "" {
		return ErrOdooConfigMissingDatabase
	}
	if c.Username == "" {
		return ErrOdooConfigMissingUsername
	}
	if c.Password == "" {
		return ErrOdooConfigMissingPassword
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.DefaultPartnerID <= 0 {
		c.DefaultPartnerID = DefaultPartnerID
	}
	if c.SKUField == "" {
		c.SKUField = DefaultSKUField
	}
	return nil
}

package model

import "time"

// Layouts accepted for a module.
const (
	LayoutGrid     = "grid"
	LayoutList     = "list"
	LayoutCarousel = "carousel"
	LayoutMap      = "map"
)

// Module is a named front-end feature the storefront renders when active.
type Module struct {
	ID        uint         `json:"id" gorm:"primaryKey"`
	Name      string       `json:"name" gorm:"size:100;uniqueIndex;not null"`
	Label     string       `json:"label" gorm:"size:255;not null"`
	Icon      string       `json:"icon" gorm:"size:100;not null"`
	Active    bool         `json:"active" gorm:"not null;index"`
	Order     int          `json:"order" gorm:"column:sort_order;not null;default:0;index"`
	Config    ModuleConfig `json:"config" gorm:"serializer:json;type:json"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// ModuleConfig is the branding, layout and SEO record attached to a module.
type ModuleConfig struct {
	Colors       ModuleColors      `json:"colors"`
	Layout       string            `json:"layout,omitempty" validate:"omitempty,oneof=grid list carousel map"`
	Filters      []string          `json:"filters" validate:"omitempty,max=50,dive,required,max=64"`
	SEO          ModuleSEO         `json:"seo"`
	Integrations map[string]string `json:"integrations,omitempty" validate:"omitempty,max=20,dive,keys,required,max=64,endkeys,max=512"`
}

// ModuleColors holds the branding palette.
type ModuleColors struct {
	Primary   string `json:"primary,omitempty" validate:"omitempty,hexcolor"`
	Secondary string `json:"secondary,omitempty" validate:"omitempty,hexcolor"`
	Accent    string `json:"accent,omitempty" validate:"omitempty,hexcolor"`
}

// ModuleSEO holds search metadata rendered into the page head.
type ModuleSEO struct {
	Title       string `json:"title,omitempty" validate:"max=70"`
	Description string `json:"description,omitempty" validate:"max=160"`
}

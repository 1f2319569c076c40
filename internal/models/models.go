package models

import (
	"time"
)

type Product struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	FactoryType  string    `gorm:"index;not null"           json:"factory_type"`
	Name         string    `gorm:"not null"                 json:"name"`
	ProductType  string    `json:"product_type"`
	FilePath     string    `json:"file_path"`
	FileSize     int64     `json:"file_size"`
	QualityScore float64   `gorm:"default:1.0"              json:"quality_score"`
	Status       string    `gorm:"default:completed"        json:"status"`
	Exported     bool      `gorm:"default:false"            json:"exported"`
	CreatedAt    time.Time `json:"created_at"`
}

type Export struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ExportID      string    `gorm:"unique;not null"          json:"export_id"`
	FactoryType   string    `json:"factory_type"`
	ProductIDs    string    `json:"product_ids"` // JSON array of product ids
	ExportFormat  string    `gorm:"default:zip"              json:"export_format"`
	FilePath      string    `gorm:"not null"                 json:"file_path"`
	FileSize      int64     `json:"file_size"`
	DownloadCount int       `gorm:"default:0"                json:"download_count"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

type ActivityLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Level     string    `gorm:"not null"                 json:"level"`
	Module    string    `json:"module"`
	Message   string    `gorm:"not null"                 json:"message"`
	Username  string    `gorm:"index"                    json:"username"`
	IPAddress string    `json:"ip_address"`
	CreatedAt time.Time `json:"created_at"`
}

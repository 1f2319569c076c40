package handlers

import (
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/marwanhub/factories-server/internal/models"
)

var factoryTypes = []string{"education", "creative", "technology", "corporate"}

var factoryNames = map[string]string{
	"education":  "Smart Education Factory",
	"creative":   "Digital Creative Factory",
	"technology": "Advanced Technology Factory",
	"corporate":  "Business Solutions Factory",
}

// FactoryHandler serves the dashboard's factory listing and live metrics.
// The metrics are simulated per request; only product counts come from the
// database.
type FactoryHandler struct {
	DB         *gorm.DB
	Production *ProductionHandler
}

func (h *FactoryHandler) GetFactories(c echo.Context) error {
	ctx := c.Request().Context()

	type countRow struct {
		FactoryType string
		N           int64
	}
	var rows []countRow
	if err := h.DB.WithContext(ctx).Model(&models.Product{}).
		Select("factory_type, COUNT(*) AS n").
		Group("factory_type").
		Scan(&rows).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false, "message": "could not load factories",
		})
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.FactoryType] = r.N
	}

	factories := make([]echo.Map, 0, len(factoryTypes))
	for i, ftype := range factoryTypes {
		efficiency := 70 + rand.Intn(29)
		health := "warning"
		switch {
		case efficiency > 85:
			health = "excellent"
		case efficiency > 70:
			health = "good"
		}
		factories = append(factories, echo.Map{
			"id":             factoryID(i),
			"name":           factoryNames[ftype],
			"type":           ftype,
			"status":         randomStatus(),
			"products_count": counts[ftype],
			"capacity":       100 + rand.Intn(901),
			"current_load":   rand.Intn(101),
			"metrics": echo.Map{
				"efficiency":      efficiency,
				"quality_score":   80 + rand.Intn(21),
				"utilization":     60 + rand.Intn(36),
				"downtime":        rand.Intn(6),
				"production_rate": 50 + rand.Intn(151),
			},
			"health": health,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "factories": factories})
}

func (h *FactoryHandler) LiveMetrics(c echo.Context) error {
	var totalProducts int64
	h.DB.WithContext(c.Request().Context()).Model(&models.Product{}).Count(&totalProducts)

	var totalRequests, pendingRequests int
	if h.Production != nil {
		totalRequests, pendingRequests = h.Production.RequestCounts()
	}

	return c.JSON(http.StatusOK, echo.Map{
		"total_factories":    len(factoryTypes),
		"active_factories":   2 + rand.Intn(3),
		"total_products":     totalProducts,
		"total_requests":     totalRequests,
		"pending_requests":   pendingRequests,
		"completed_today":    10 + rand.Intn(41),
		"avg_efficiency":     75 + rand.Intn(21),
		"quality_compliance": 85 + rand.Intn(15),
		"energy_consumption": 500 + rand.Intn(1501),
		"alerts":             rand.Intn(4),
		"timestamp":          time.Now().UTC(),
	})
}

// GetFactory returns one factory with its operational detail: recent
// production history, quality reports, upcoming tasks and open alerts. The
// detail is simulated per request, like the listing's metrics.
func (h *FactoryHandler) GetFactory(c echo.Context) error {
	id := c.Param("id")

	idx := -1
	for i := range factoryTypes {
		if factoryID(i) == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return c.JSON(http.StatusNotFound, echo.Map{
			"success": false, "message": "factory not found",
		})
	}
	ftype := factoryTypes[idx]

	var count int64
	h.DB.WithContext(c.Request().Context()).Model(&models.Product{}).
		Where("factory_type = ?", ftype).Count(&count)

	now := time.Now().UTC()
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"factory": echo.Map{
			"id":                 id,
			"name":               factoryNames[ftype],
			"type":               ftype,
			"status":             randomStatus(),
			"products_count":     count,
			"last_maintenance":   now.AddDate(0, 0, -rand.Intn(31)).Format("2006-01-02"),
			"next_maintenance":   now.AddDate(0, 0, 1+rand.Intn(60)).Format("2006-01-02"),
			"production_history": productionHistory(now),
			"quality_reports":    qualityReports(now),
			"upcoming_tasks":     upcomingTasks(now),
			"alerts":             factoryAlerts(now),
		},
	})
}

// productionHistory yields one row per day for the past week, newest first.
func productionHistory(now time.Time) []echo.Map {
	history := make([]echo.Map, 0, 7)
	for i := 0; i < 7; i++ {
		history = append(history, echo.Map{
			"date":           now.AddDate(0, 0, -i).Format("2006-01-02"),
			"units_produced": 50 + rand.Intn(151),
			"defects":        rand.Intn(6),
			"efficiency":     75 + rand.Intn(24),
			"energy_used":    100 + rand.Intn(401),
		})
	}
	return history
}

func qualityReports(now time.Time) []echo.Map {
	reports := make([]echo.Map, 0, 5)
	for i := 0; i < 5; i++ {
		reports = append(reports, echo.Map{
			"id":        "QR" + strconv.Itoa(i+1),
			"date":      now.AddDate(0, 0, -(1 + rand.Intn(30))).Format("2006-01-02"),
			"score":     85 + rand.Intn(16),
			"inspector": "inspector_" + strconv.Itoa(1+rand.Intn(3)),
		})
	}
	return reports
}

func upcomingTasks(now time.Time) []echo.Map {
	taskTypes := []string{"maintenance", "upgrade", "inspection", "calibration"}
	teams := []string{"maintenance", "quality", "technical"}
	priorities := []string{"low", "medium", "high"}

	tasks := make([]echo.Map, 0, 3)
	for i := 0; i < 3; i++ {
		tasks = append(tasks, echo.Map{
			"id":             "TASK" + strconv.Itoa(i+1),
			"type":           taskTypes[rand.Intn(len(taskTypes))],
			"scheduled_date": now.AddDate(0, 0, 1+rand.Intn(14)).Format("2006-01-02"),
			"duration_hours": 2 + rand.Intn(7),
			"priority":       priorities[rand.Intn(len(priorities))],
			"assigned_to":    teams[rand.Intn(len(teams))] + " team",
		})
	}
	return tasks
}

func factoryAlerts(now time.Time) []echo.Map {
	templates := []struct {
		category string
		message  string
		severity string
	}{
		{"warning", "temperature above threshold", "medium"},
		{"maintenance", "routine maintenance due", "low"},
		{"performance", "efficiency dropped", "medium"},
		{"info", "batch completed", "low"},
	}

	alerts := make([]echo.Map, 0, 2)
	for i := 0; i < rand.Intn(3); i++ {
		tpl := templates[rand.Intn(len(templates))]
		alerts = append(alerts, echo.Map{
			"id":           "ALERT" + strconv.Itoa(i+1),
			"category":     tpl.category,
			"message":      tpl.message,
			"severity":     tpl.severity,
			"time":         now.Add(-time.Duration(1+rand.Intn(24)) * time.Hour).Format("15:04"),
			"acknowledged": rand.Intn(2) == 0,
		})
	}
	return alerts
}

func factoryID(i int) string {
	return "factory_" + strconv.Itoa(i+1)
}

func randomStatus() string {
	statuses := []string{"running", "idle", "maintenance", "error"}
	return statuses[rand.Intn(len(statuses))]
}

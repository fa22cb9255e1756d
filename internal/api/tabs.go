package api

import (
	"errors"
	"net/http"

	"github.com/annel0/al-spectator/internal/protocol"
	"github.com/annel0/al-spectator/internal/relay"
	"github.com/annel0/al-spectator/internal/spectator"
	"github.com/gin-gonic/gin"
)

// CreateTabRequest: регистрация вкладки
type CreateTabRequest struct {
	Name string  `json:"name" binding:"required"`
	Map  string  `json:"map"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// handleListTabs возвращает сводки всех вкладок в порядке регистрации
func (rs *RestServer) handleListTabs(c *gin.Context) {
	names := rs.relay.Tabs()
	infos := make([]relay.TabInfo, 0, len(names))
	for _, name := range names {
		t, err := rs.relay.Tab(name)
		if err != nil {
			continue
		}
		infos = append(infos, t.Info())
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Вкладки",
		Data:    infos,
	})
}

// handleCreateTab регистрирует вкладку вручную
func (rs *RestServer) handleCreateTab(c *gin.Context) {
	var req CreateTabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	initial := relay.DefaultMap
	if req.Map != "" {
		initial = protocol.MapData{Map: req.Map, X: req.X, Y: req.Y}
	}
	if !rs.relay.AddTab(req.Name, initial) {
		fail(c, http.StatusConflict, "Вкладка уже существует")
		return
	}
	t, err := rs.relay.Tab(req.Name)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Внутренняя ошибка сервера")
		return
	}
	c.JSON(http.StatusCreated, GenericResponse{
		Success: true,
		Message: "Вкладка создана",
		Data:    t.Info(),
	})
}

// handleGetTab возвращает сводку одной вкладки
func (rs *RestServer) handleGetTab(c *gin.Context) {
	t, ok := rs.lookupTab(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Вкладка",
		Data:    t.Info(),
	})
}

// handleTabSnapshot возвращает состояние движка вкладки после последнего кадра
func (rs *RestServer) handleTabSnapshot(c *gin.Context) {
	tab := c.Param("tab")
	if _, ok := rs.lookupTab(c); !ok {
		return
	}
	s, ok := rs.spectator(c, tab)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Состояние движка",
		Data:    s.Snapshot(),
	})
}

// handleTabScene возвращает граф сцены вкладки
func (rs *RestServer) handleTabScene(c *gin.Context) {
	tab := c.Param("tab")
	if _, ok := rs.lookupTab(c); !ok {
		return
	}
	s, ok := rs.spectator(c, tab)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Сцена",
		Data:    s.Scene(),
	})
}

func (rs *RestServer) lookupTab(c *gin.Context) (*relay.Tab, bool) {
	t, err := rs.relay.Tab(c.Param("tab"))
	if errors.Is(err, relay.ErrTabNotFound) {
		fail(c, http.StatusNotFound, "Вкладка не найдена")
		return nil, false
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, "Внутренняя ошибка сервера")
		return nil, false
	}
	return t, true
}

func (rs *RestServer) spectator(c *gin.Context, tab string) (*spectator.Spectator, bool) {
	if rs.spectators == nil {
		fail(c, http.StatusServiceUnavailable, "Движок представления выключен")
		return nil, false
	}
	s, ok := rs.spectators.Get(tab)
	if !ok {
		fail(c, http.StatusServiceUnavailable, "Спектатор вкладки ещё не запущен")
		return nil, false
	}
	return s, true
}

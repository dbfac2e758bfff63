package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v3"

	"github.com/immxrtalbeast/axenix_relay/internal/api/http/converter"
	"github.com/immxrtalbeast/axenix_relay/internal/service"
)

// RoomController exposes read-only views of the room directory.
type RoomController struct {
	rooms       service.RoomInteractor
	stunServers []string
}

func NewRoomController(rooms service.RoomInteractor, stunServers []string) *RoomController {
	return &RoomController{
		rooms:       rooms,
		stunServers: stunServers,
	}
}

func (c *RoomController) ListRooms(ctx *gin.Context) {
	rooms := c.rooms.ListRooms(ctx.Request.Context())
	ctx.JSON(http.StatusOK, gin.H{"rooms": converter.RoomsToApi(rooms)})
}

func (c *RoomController) GetRoom(ctx *gin.Context) {
	room, err := c.rooms.GetRoom(ctx.Request.Context(), ctx.Param("roomID"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		ctx.JSON(status, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"room": converter.RoomToApi(room)})
}

// ICEServers lists the STUN servers clients should hand to their peer
// connection. The relay never contacts them itself.
func (c *RoomController) ICEServers(ctx *gin.Context) {
	servers := make([]webrtc.ICEServer, 0, len(c.stunServers))
	for _, url := range c.stunServers {
		servers = append(servers, webrtc.ICEServer{URLs: []string{url}})
	}
	ctx.JSON(http.StatusOK, gin.H{"ice_servers": servers})
}

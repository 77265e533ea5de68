package devserver

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oremus-labs/ol-power-client/internal/envelope"
	"github.com/oremus-labs/ol-power-client/internal/openapi"
	"github.com/oremus-labs/ol-power-client/internal/powerapi"
)

func ok(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, envelope.OK(message, data))
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, envelope.Fail(message))
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, name+" must be numeric")
		return 0, false
	}
	return id, true
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) openAPIJSON(c *gin.Context) {
	doc, err := openapi.JSON()
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(http.StatusOK, "application/json", doc)
}

func (s *Server) openAPIYAML(c *gin.Context) {
	c.Data(http.StatusOK, "application/yaml", openapi.YAML())
}

func (s *Server) login(c *gin.Context) {
	var req powerapi.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	user, found := s.data.authenticate(req.Username, req.Password)
	if !found {
		fail(c, http.StatusBadRequest, "invalid username or password")
		return
	}
	s.issueSession(c, user)
}

func (s *Server) faceLogin(c *gin.Context) {
	var req powerapi.FaceLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	user, found := s.data.matchFace(req.FaceData)
	if !found {
		fail(c, http.StatusBadRequest, "face not recognised")
		return
	}
	s.issueSession(c, user)
}

func (s *Server) issueSession(c *gin.Context, user powerapi.User) {
	if !user.IsActive {
		fail(c, http.StatusBadRequest, "user is disabled")
		return
	}
	token, err := s.tokens.Issue(user.Username, user.Role)
	if err != nil {
		s.logger.Error("issue token", "error", err)
		fail(c, http.StatusInternalServerError, "failed to issue token")
		return
	}
	s.data.touchLogin(user.ID)
	ok(c, "login succeeded", powerapi.LoginResult{
		Token:        token,
		RefreshToken: uuid.NewString(),
		User: powerapi.UserInfo{
			ID:             user.ID,
			Username:       user.Username,
			RealName:       user.RealName,
			Role:           user.Role,
			FaceRegistered: user.FaceRegistered,
		},
	})
}

func (s *Server) registerFace(c *gin.Context) {
	var body struct {
		FaceData string `json:"faceData"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.FaceData) == "" {
		fail(c, http.StatusBadRequest, "faceData is required")
		return
	}
	ref := c.Param("user")
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		user, found := s.data.userByName(ref)
		if !found {
			fail(c, http.StatusBadRequest, "user not found")
			return
		}
		id = user.ID
	}
	if !s.data.registerFace(id, body.FaceData) {
		fail(c, http.StatusBadRequest, "user not found")
		return
	}
	ok(c, "face registered", true)
}

func (s *Server) checkFaceRegistered(c *gin.Context) {
	ref := c.Param("user")
	var (
		user  powerapi.User
		found bool
	)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		user, found = s.data.user(id)
	} else {
		user, found = s.data.userByName(ref)
	}
	if !found {
		fail(c, http.StatusBadRequest, "user not found")
		return
	}
	ok(c, "ok", user.FaceRegistered)
}

func (s *Server) chat(c *gin.Context) {
	var body struct {
		Prompt string `json:"prompt"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Prompt) == "" {
		fail(c, http.StatusBadRequest, "prompt must not be empty")
		return
	}
	start := time.Now()
	res := s.data.answer(body.Prompt)
	s.data.record("AI_"+uuid.NewString()[:8], body.Prompt, res.Response, time.Since(start))
	ok(c, "chat succeeded", res.Response)
}

func (s *Server) sendMessage(c *gin.Context) {
	var req powerapi.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		fail(c, http.StatusBadRequest, "message must not be empty")
		return
	}
	start := time.Now()
	res := s.data.answer(req.Message)
	res.SessionID = req.SessionID
	if res.SessionID == "" {
		res.SessionID = "SESS_" + uuid.NewString()[:8]
	}
	s.data.record(res.SessionID, req.Message, res.Response, time.Since(start))
	ok(c, "ok", res)
}

func (s *Server) chatHistory(c *gin.Context) {
	ok(c, "ok", s.data.history(c.Param("sessionId")))
}

func (s *Server) chatHealth(c *gin.Context) {
	ok(c, "chat service is running", nil)
}

func (s *Server) listServices(c *gin.Context) {
	ok(c, "ok", s.data.listServiceTypes())
}

func (s *Server) getService(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	st, found := s.data.serviceType(id)
	if !found {
		fail(c, http.StatusBadRequest, "service not found")
		return
	}
	ok(c, "ok", st)
}

func (s *Server) electricity(c *gin.Context) {
	ok(c, "ok", s.data.monitor())
}

func (s *Server) updateElectricity(c *gin.Context) {
	var upd powerapi.ElectricityUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if !s.data.setElectricity(upd) {
		fail(c, http.StatusBadRequest, "unknown data_type or period")
		return
	}
	ok(c, "electricity data updated", nil)
}

func (s *Server) systemStatus(c *gin.Context) {
	ok(c, "ok", powerapi.SystemStatus{
		Status:      "running",
		Timestamp:   localNow(),
		Version:     s.version,
		UsersOnline: len(s.data.users()),
	})
}

func (s *Server) listUsers(c *gin.Context) {
	ok(c, "ok", s.data.users())
}

func (s *Server) getUser(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	user, found := s.data.user(id)
	if !found {
		fail(c, http.StatusNotFound, "user not found")
		return
	}
	ok(c, "ok", user)
}

func (s *Server) updateUser(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var patch powerapi.User
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	user, found := s.data.updateUser(id, patch)
	if !found {
		fail(c, http.StatusNotFound, "user not found")
		return
	}
	ok(c, "user updated", user)
}

func (s *Server) deleteUser(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if !s.data.deleteUser(id) {
		fail(c, http.StatusNotFound, "user not found")
		return
	}
	ok(c, "user deleted", nil)
}

func (s *Server) userByName(c *gin.Context) {
	user, found := s.data.userByName(c.Param("username"))
	if !found {
		fail(c, http.StatusNotFound, "user not found")
		return
	}
	ok(c, "ok", user)
}

func (s *Server) listKnowledge(c *gin.Context) {
	ok(c, "ok", s.data.listKnowledge(nil))
}

func (s *Server) popularKnowledge(c *gin.Context) {
	ok(c, "ok", s.data.popularKnowledge(5))
}

func (s *Server) knowledgeByServiceType(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	ok(c, "ok", s.data.listKnowledge(func(kb powerapi.KnowledgeBase) bool {
		return kb.ServiceType != nil && kb.ServiceType.ID == id
	}))
}

package powerapi

// Timestamps are kept as strings: the backend emits zone-less ISO local
// date-times that do not parse as RFC 3339.

// LoginRequest is the password login body.
type LoginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe,omitempty"`
}

// FaceLoginRequest is the face login body.
type FaceLoginRequest struct {
	FaceData  string `json:"faceData"`
	SessionID string `json:"sessionId,omitempty"`
}

// UserInfo is the user summary returned by login.
type UserInfo struct {
	ID             int64  `json:"id"`
	Username       string `json:"username"`
	RealName       string `json:"realName,omitempty"`
	Role           string `json:"role"`
	FaceRegistered bool   `json:"faceRegistered"`
}

// LoginResult is the data of a successful login.
type LoginResult struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refreshToken,omitempty"`
	User         UserInfo `json:"user"`
}

// User is a full user record.
type User struct {
	ID             int64  `json:"id,omitempty"`
	Username       string `json:"username,omitempty"`
	RealName       string `json:"realName,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Email          string `json:"email,omitempty"`
	Role           string `json:"role,omitempty"`
	FaceRegistered bool   `json:"faceRegistered"`
	IsActive       bool   `json:"isActive"`
	LastLoginTime  string `json:"lastLoginTime,omitempty"`
	CreatedAt      string `json:"createdAt,omitempty"`
	UpdatedAt      string `json:"updatedAt,omitempty"`
}

// FacePoint is one active dot of a captured face mesh.
type FacePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ChatRequest is the body of the rule-based chat endpoint.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
	UserID    int64  `json:"userId,omitempty"`
}

// ChatResponse is the reply of the rule-based chat endpoint.
type ChatResponse struct {
	Response     string `json:"response"`
	ServiceType  string `json:"serviceType,omitempty"`
	NeedMoreInfo bool   `json:"needMoreInfo"`
	SessionID    string `json:"sessionId"`
}

// ChatRecord is one stored exchange of a chat session.
type ChatRecord struct {
	ID           int64  `json:"id"`
	SessionID    string `json:"sessionId"`
	UserMessage  string `json:"userMessage"`
	BotResponse  string `json:"botResponse"`
	ResponseTime int    `json:"responseTime,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
}

// ServiceType is a category of power service.
type ServiceType struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	SortOrder   int    `json:"sortOrder"`
	IsActive    bool   `json:"isActive"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// KnowledgeBase is a question/answer entry.
type KnowledgeBase struct {
	ID          int64        `json:"id"`
	Question    string       `json:"question"`
	Answer      string       `json:"answer"`
	ServiceType *ServiceType `json:"serviceType,omitempty"`
	Keywords    string       `json:"keywords,omitempty"`
	HitCount    int          `json:"hitCount"`
	IsActive    bool         `json:"isActive"`
	CreatedAt   string       `json:"createdAt,omitempty"`
	UpdatedAt   string       `json:"updatedAt,omitempty"`
}

// ElectricityStats are the latest day/month/year figures for one customer class.
type ElectricityStats struct {
	DayAmount   float64 `json:"dayAmount"`
	DayCount    int     `json:"dayCount"`
	MonthAmount float64 `json:"monthAmount"`
	MonthCount  int     `json:"monthCount"`
	YearAmount  float64 `json:"yearAmount"`
	YearCount   int     `json:"yearCount"`
}

// MonitorData is the electricity dashboard payload.
type MonitorData struct {
	Resident     ElectricityStats `json:"resident"`
	NonResident  ElectricityStats `json:"nonResident"`
	CurrentDate  string           `json:"currentDate"`
	SystemStatus string           `json:"systemStatus"`
}

// ElectricityUpdate sets one electricity figure. The backend expects snake_case.
type ElectricityUpdate struct {
	DataType   string  `json:"data_type"`
	Period     string  `json:"period"`
	PeriodDate string  `json:"period_date"`
	Amount     float64 `json:"amount"`
	Count      int     `json:"count"`
}

// SystemStatus is the backend status summary.
type SystemStatus struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Version     string `json:"version"`
	UsersOnline int    `json:"usersOnline"`
}

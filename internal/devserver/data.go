package devserver

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oremus-labs/ol-power-client/internal/powerapi"
)

const localTimeLayout = "2006-01-02T15:04:05"

func localNow() string { return time.Now().Format(localTimeLayout) }

type account struct {
	user     powerapi.User
	password string
	faceData string
}

type reading struct {
	amount float64
	count  int
}

// dataset is the in-memory state of the stub backend.
type dataset struct {
	mu sync.RWMutex

	nextRecordID int64
	accounts     []*account
	serviceTypes []powerapi.ServiceType
	knowledge    []powerapi.KnowledgeBase
	records      []powerapi.ChatRecord
	electricity  map[string]map[string]reading
}

func newDataset() *dataset {
	now := localNow()
	d := &dataset{
		nextRecordID: 1,
		electricity: map[string]map[string]reading{
			"resident":     {"day": {0.17, 6}, "month": {0.17, 6}, "year": {0.17, 6}},
			"non_resident": {"day": {1.14, 1}, "month": {1.14, 1}, "year": {1.14, 1}},
		},
	}
	d.accounts = []*account{
		{
			user: powerapi.User{ID: 1, Username: "admin", RealName: "Administrator", Role: "ADMIN",
				FaceRegistered: true, IsActive: true, CreatedAt: now, UpdatedAt: now},
			password: "admin123",
			faceData: "demo-face",
		},
		{
			user: powerapi.User{ID: 2, Username: "operator", RealName: "Hall Operator", Role: "USER",
				IsActive: true, CreatedAt: now, UpdatedAt: now},
			password: "operator123",
		},
	}
	names := []string{"电力业务", "故障报修", "用电咨询", "安全宣传", "政策解读", "电表问题", "上门服务"}
	for i, name := range names {
		d.serviceTypes = append(d.serviceTypes, powerapi.ServiceType{
			ID: int64(i + 1), Name: name, SortOrder: i + 1, IsActive: true, CreatedAt: now, UpdatedAt: now,
		})
	}
	d.knowledge = []powerapi.KnowledgeBase{
		{ID: 1, Question: "如何办理新装用电？", Answer: "请携带身份证和房产证明到营业厅办理新装申请。",
			ServiceType: &d.serviceTypes[0], Keywords: "新装", HitCount: 12, IsActive: true},
		{ID: 2, Question: "家里突然停电怎么办？", Answer: "请先检查家中总闸，如无异常请拨打95598报修。",
			ServiceType: &d.serviceTypes[1], Keywords: "停电", HitCount: 30, IsActive: true},
		{ID: 3, Question: "阶梯电价如何计算？", Answer: "阶梯电价按年度累计用电量分档计价。",
			ServiceType: &d.serviceTypes[4], Keywords: "阶梯", HitCount: 7, IsActive: true},
	}
	return d
}

func (d *dataset) authenticate(username, password string) (powerapi.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, a := range d.accounts {
		if a.user.Username == username && a.password == password {
			return a.user, true
		}
	}
	return powerapi.User{}, false
}

func (d *dataset) matchFace(faceData string) (powerapi.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, a := range d.accounts {
		if a.user.FaceRegistered && a.faceData != "" && a.faceData == faceData {
			return a.user, true
		}
	}
	return powerapi.User{}, false
}

func (d *dataset) touchLogin(id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if a := d.findLocked(id); a != nil {
		a.user.LastLoginTime = localNow()
	}
}

func (d *dataset) findLocked(id int64) *account {
	for _, a := range d.accounts {
		if a.user.ID == id {
			return a
		}
	}
	return nil
}

func (d *dataset) users() []powerapi.User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]powerapi.User, 0, len(d.accounts))
	for _, a := range d.accounts {
		out = append(out, a.user)
	}
	return out
}

func (d *dataset) user(id int64) (powerapi.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if a := d.findLocked(id); a != nil {
		return a.user, true
	}
	return powerapi.User{}, false
}

func (d *dataset) userByName(username string) (powerapi.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, a := range d.accounts {
		if a.user.Username == username {
			return a.user, true
		}
	}
	return powerapi.User{}, false
}

func (d *dataset) updateUser(id int64, patch powerapi.User) (powerapi.User, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a := d.findLocked(id)
	if a == nil {
		return powerapi.User{}, false
	}
	if patch.RealName != "" {
		a.user.RealName = patch.RealName
	}
	if patch.Phone != "" {
		a.user.Phone = patch.Phone
	}
	if patch.Email != "" {
		a.user.Email = patch.Email
	}
	if patch.Role != "" {
		a.user.Role = patch.Role
	}
	a.user.IsActive = patch.IsActive
	a.user.UpdatedAt = localNow()
	return a.user, true
}

func (d *dataset) deleteUser(id int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, a := range d.accounts {
		if a.user.ID == id {
			d.accounts = append(d.accounts[:i], d.accounts[i+1:]...)
			return true
		}
	}
	return false
}

func (d *dataset) registerFace(id int64, faceData string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	a := d.findLocked(id)
	if a == nil {
		return false
	}
	a.faceData = faceData
	a.user.FaceRegistered = true
	a.user.UpdatedAt = localNow()
	return true
}

func (d *dataset) serviceType(id int64) (powerapi.ServiceType, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, st := range d.serviceTypes {
		if st.ID == id {
			return st, true
		}
	}
	return powerapi.ServiceType{}, false
}

func (d *dataset) listServiceTypes() []powerapi.ServiceType {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]powerapi.ServiceType(nil), d.serviceTypes...)
}

func (d *dataset) listKnowledge(filter func(powerapi.KnowledgeBase) bool) []powerapi.KnowledgeBase {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := []powerapi.KnowledgeBase{}
	for _, kb := range d.knowledge {
		if kb.IsActive && (filter == nil || filter(kb)) {
			out = append(out, kb)
		}
	}
	return out
}

func (d *dataset) popularKnowledge(limit int) []powerapi.KnowledgeBase {
	out := d.listKnowledge(nil)
	sort.SliceStable(out, func(i, j int) bool { return out[i].HitCount > out[j].HitCount })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// answer matches message against the knowledge base and then the keyword
// rules.
func (d *dataset) answer(message string) powerapi.ChatResponse {
	d.mu.Lock()
	for i := range d.knowledge {
		kb := &d.knowledge[i]
		if kb.IsActive && kb.Keywords != "" && strings.Contains(message, kb.Keywords) {
			kb.HitCount++
			res := powerapi.ChatResponse{Response: kb.Answer}
			if kb.ServiceType != nil {
				res.ServiceType = kb.ServiceType.Name
			}
			d.mu.Unlock()
			return res
		}
	}
	d.mu.Unlock()

	for _, r := range chatRules {
		for _, kw := range r.keywords {
			if strings.Contains(message, kw) {
				return powerapi.ChatResponse{Response: r.reply, ServiceType: r.serviceType, NeedMoreInfo: r.needMoreInfo}
			}
		}
	}
	return powerapi.ChatResponse{Response: fallbackReply}
}

func (d *dataset) record(sessionID, message, reply string, elapsed time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records = append(d.records, powerapi.ChatRecord{
		ID:           d.nextRecordID,
		SessionID:    sessionID,
		UserMessage:  message,
		BotResponse:  reply,
		ResponseTime: int(elapsed.Milliseconds()),
		CreatedAt:    localNow(),
	})
	d.nextRecordID++
}

func (d *dataset) history(sessionID string) []powerapi.ChatRecord {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := []powerapi.ChatRecord{}
	for _, r := range d.records {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	return out
}

func (d *dataset) monitor() powerapi.MonitorData {
	d.mu.RLock()
	defer d.mu.RUnlock()
	stats := func(kind string) powerapi.ElectricityStats {
		p := d.electricity[kind]
		return powerapi.ElectricityStats{
			DayAmount: p["day"].amount, DayCount: p["day"].count,
			MonthAmount: p["month"].amount, MonthCount: p["month"].count,
			YearAmount: p["year"].amount, YearCount: p["year"].count,
		}
	}
	return powerapi.MonitorData{
		Resident:     stats("resident"),
		NonResident:  stats("non_resident"),
		CurrentDate:  time.Now().Format("2006-01-02"),
		SystemStatus: "running",
	}
}

func (d *dataset) setElectricity(upd powerapi.ElectricityUpdate) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	periods, ok := d.electricity[upd.DataType]
	if !ok {
		return false
	}
	if _, ok := periods[upd.Period]; !ok {
		return false
	}
	periods[upd.Period] = reading{amount: upd.Amount, count: upd.Count}
	return true
}

type chatRule struct {
	keywords     []string
	reply        string
	serviceType  string
	needMoreInfo bool
}

const fallbackReply = "抱歉，我没有完全理解您的问题。您可以尝试选择下方的服务分类，或者描述更具体的问题，我会尽力为您解答。"

var chatRules = []chatRule{
	{[]string{"故障", "报修"}, "您好，故障报修服务已受理。请提供您的详细地址和故障现象描述，我们将尽快安排维修人员处理。", "故障报修", true},
	{[]string{"业务", "办理"}, "电力业务办理包括新装、增容、变更用电等。请问您需要办理哪项具体业务？", "电力业务", true},
	{[]string{"咨询", "问题"}, "用电咨询请详细描述您遇到的问题，我们会为您提供专业的解答。", "用电咨询", true},
	{[]string{"安全", "宣传"}, "安全用电提醒：请勿私拉乱接电线，定期检查家用电器，雷雨天气注意用电安全，远离电力设施。", "安全宣传", false},
	{[]string{"政策", "电价"}, "现行电价政策为阶梯电价，具体标准可查询当地供电营业厅或官方网站。", "政策解读", true},
	{[]string{"电表", "计量"}, "电表问题包括计量不准、显示异常、安装问题等。请提供您的用户编号和具体问题描述。", "电表问题", true},
	{[]string{"电话", "联系"}, "我们的24小时客服电话是95598，紧急情况请直接拨打。", "", false},
	{[]string{"上门", "预约"}, "上门服务需要预约登记，请提供您的姓名、联系电话、详细地址和需要服务的具体内容。", "上门服务", true},
}

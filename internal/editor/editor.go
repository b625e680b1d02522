// Package editor 清单编辑器：工作副本与原始快照、条目增删、校验、保存与导航
package editor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/langchou/packlist/internal/client"
	"github.com/langchou/packlist/internal/models"
	"github.com/langchou/packlist/internal/nav"
)

// ErrBusy 保存进行中
var ErrBusy = errors.New("save already in progress")

// Field 表单字段
type Field int

const (
	FieldDriver Field = iota
	FieldLicensePlate
	FieldItems
)

func (f Field) String() string {
	switch f {
	case FieldDriver:
		return "driverName"
	case FieldLicensePlate:
		return "licensePlate"
	case FieldItems:
		return "items"
	}
	return "unknown"
}

// ValidationError 保存前的校验失败，不会发送请求
type ValidationError struct {
	Field   Field
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// View 渲染内容
type View struct {
	State        string
	Items        []string
	DriverName   string
	LicensePlate string
	SaveLabel    string
}

// UI 界面能力
type UI interface {
	Confirm(ctx context.Context, message string) (bool, error)
	Suggest(query string, candidates []string) []string
	Alert(message string)
	Focus(field Field)
	Render(v View)
}

// Lists 清单 API（*client.Client 实现）
type Lists interface {
	GetList(ctx context.Context, id int64) (*models.List, error)
	CreateList(ctx context.Context, p client.Payload) (*models.List, error)
	UpdateList(ctx context.Context, id int64, p client.Payload) (*models.List, error)
}

// Origin 进入编辑页之前所在的页面
type Origin int

const (
	OriginUnknown Origin = iota
	OriginView
	OriginOverview
)

// Editor 清单编辑器
type Editor struct {
	lists     Lists
	ui        UI
	navigator nav.Navigator
	logger    *zap.Logger
	drafts    DraftStore
	machine   *machine

	id     int64 // 0 表示新建
	origin Origin

	mu           sync.Mutex
	original     []string
	items        []string
	driverName   string
	licensePlate string
}

// Option 编辑器选项
type Option func(*Editor)

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(e *Editor) { e.logger = logger }
}

// WithDrafts 新建流程的草稿存储
func WithDrafts(d DraftStore) Option {
	return func(e *Editor) { e.drafts = d }
}

func newEditor(lists Lists, ui UI, navigator nav.Navigator, opts []Option) *Editor {
	e := &Editor{
		lists:     lists,
		ui:        ui,
		navigator: navigator,
		logger:    zap.NewNop(),
		original:  []string{},
		items:     []string{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewEdit 编辑已有清单，初始状态 loading，需调用 Load
func NewEdit(lists Lists, ui UI, navigator nav.Navigator, id int64, origin Origin, opts ...Option) *Editor {
	e := newEditor(lists, ui, navigator, opts)
	e.id = id
	e.origin = origin
	e.machine = newMachine(StateLoading, e.logTransition)
	return e
}

// NewCreate 新建清单，没有加载步骤，原始快照始终为空
func NewCreate(lists Lists, ui UI, navigator nav.Navigator, opts ...Option) *Editor {
	e := newEditor(lists, ui, navigator, opts)
	e.machine = newMachine(StateReady, e.logTransition)

	if e.drafts != nil {
		items, err := e.drafts.Load()
		if err != nil {
			e.logger.Warn("Failed to load draft", zap.Error(err))
		}
		e.items = models.DedupeItems(items)
	}
	return e
}

func (e *Editor) logTransition(from, to string) {
	e.logger.Debug("Editor state changed",
		zap.Int64("list_id", e.id),
		zap.String("from", from),
		zap.String("to", to),
	)
}

// Load 加载清单；失败时提示 Not found 并返回总览
func (e *Editor) Load(ctx context.Context) error {
	list, err := e.lists.GetList(ctx, e.id)
	if err != nil {
		if tErr := e.machine.trigger(ctx, EventLoadFailed); tErr != nil {
			return tErr
		}
		e.logger.Warn("Failed to load list", zap.Int64("list_id", e.id), zap.Error(err))
		e.ui.Alert("Not found")
		e.navigator.Navigate(nav.Destination{Page: nav.Overview})
		return fmt.Errorf("load list %d: %w", e.id, err)
	}

	e.mu.Lock()
	e.original = append([]string{}, list.Items...)
	e.items = append([]string{}, list.Items...)
	e.driverName = list.DriverName
	e.licensePlate = list.LicensePlate
	e.mu.Unlock()

	if err := e.machine.trigger(ctx, EventLoaded); err != nil {
		return err
	}
	e.render()
	return nil
}

// State 当前状态
func (e *Editor) State() string {
	return e.machine.current()
}

// ID 清单 ID，新建时为 0
func (e *Editor) ID() int64 {
	return e.id
}

// Items 工作副本
func (e *Editor) Items() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string{}, e.items...)
}

// DriverName 当前司机名
func (e *Editor) DriverName() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.driverName
}

// LicensePlate 当前车牌号
func (e *Editor) LicensePlate() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.licensePlate
}

// SetDriverName 设置司机名
func (e *Editor) SetDriverName(name string) {
	e.mu.Lock()
	e.driverName = name
	e.mu.Unlock()
	e.render()
}

// SetLicensePlate 设置车牌号
func (e *Editor) SetLicensePlate(plate string) {
	e.mu.Lock()
	e.licensePlate = plate
	e.mu.Unlock()
	e.render()
}

// AddItem 追加条目；去除空白后为空或已存在（区分大小写）时不做任何事
func (e *Editor) AddItem(text string) bool {
	value := strings.TrimSpace(text)
	if value == "" {
		return false
	}

	e.mu.Lock()
	if slices.Contains(e.items, value) {
		e.mu.Unlock()
		return false
	}
	e.items = append(e.items, value)
	e.mu.Unlock()

	e.saveDraft()
	e.render()
	return true
}

// DeleteItem 用户确认后删除 index 处的条目，返回是否删除
func (e *Editor) DeleteItem(ctx context.Context, index int) (bool, error) {
	e.mu.Lock()
	if index < 0 || index >= len(e.items) {
		e.mu.Unlock()
		return false, fmt.Errorf("item index %d out of range", index)
	}
	item := e.items[index]
	e.mu.Unlock()

	ok, err := e.ui.Confirm(ctx, fmt.Sprintf("Are you sure you want to delete %q?", item))
	if err != nil {
		return false, fmt.Errorf("confirm delete: %w", err)
	}
	if !ok {
		return false, nil
	}

	e.mu.Lock()
	// 确认期间列表可能已变化，按内容重新定位
	i := slices.Index(e.items, item)
	if i < 0 {
		e.mu.Unlock()
		return false, nil
	}
	e.items = slices.Delete(e.items, i, i+1)
	e.mu.Unlock()

	e.saveDraft()
	e.render()
	return true, nil
}

// HasUnsavedChanges 比较排序后的工作副本与原始快照
func (e *Editor) HasUnsavedChanges() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !slices.Equal(sortedCopy(e.items), sortedCopy(e.original))
}

// SaveLabel 保存按钮文字
func (e *Editor) SaveLabel() string {
	if e.HasUnsavedChanges() {
		return "Save*"
	}
	return "Save"
}

// Suggest 使用 UI 的匹配器过滤候选项
func (e *Editor) Suggest(query string, candidates []string) []string {
	return e.ui.Suggest(query, candidates)
}

// Save 校验后发送完整内容；成功后导航离开，失败时提示并回到 ready
func (e *Editor) Save(ctx context.Context) error {
	switch state := e.machine.current(); state {
	case StateReady:
	case StateSaving:
		return ErrBusy
	default:
		return fmt.Errorf("cannot save in state %s", state)
	}

	e.mu.Lock()
	driver := strings.TrimSpace(e.driverName)
	plate := strings.TrimSpace(e.licensePlate)
	items := models.DedupeItems(e.items)
	e.mu.Unlock()

	if err := e.validate(driver, plate, items); err != nil {
		return err
	}

	if err := e.machine.trigger(ctx, EventSave); err != nil {
		return ErrBusy
	}
	e.render()

	payload := client.Payload{Items: items, DriverName: driver, LicensePlate: plate}
	var (
		saved *models.List
		err   error
	)
	if e.id == 0 {
		saved, err = e.lists.CreateList(ctx, payload)
	} else {
		saved, err = e.lists.UpdateList(ctx, e.id, payload)
	}

	if err != nil {
		if tErr := e.machine.trigger(ctx, EventSaveFailed); tErr != nil {
			e.logger.Error("Failed to leave saving state", zap.Error(tErr))
		}
		e.logger.Error("Failed to save list", zap.Int64("list_id", e.id), zap.Error(err))
		e.ui.Alert("Failed to save")
		e.render()
		return fmt.Errorf("save list: %w", err)
	}

	e.mu.Lock()
	e.items = append([]string{}, saved.Items...)
	e.original = append([]string{}, saved.Items...)
	e.driverName = saved.DriverName
	e.licensePlate = saved.LicensePlate
	e.mu.Unlock()

	if err := e.machine.trigger(ctx, EventSaved); err != nil {
		return err
	}
	if e.id == 0 {
		e.clearDraft()
	}

	e.logger.Info("List saved", zap.Int64("list_id", saved.ID), zap.Int("items", len(saved.Items)))
	e.navigator.Navigate(e.destination())
	return nil
}

// validate 司机、车牌必填；新建时条目不能为空
func (e *Editor) validate(driver, plate string, items []string) error {
	var verr *ValidationError
	switch {
	case driver == "":
		verr = &ValidationError{Field: FieldDriver, Message: "Driver name is required."}
	case plate == "":
		verr = &ValidationError{Field: FieldLicensePlate, Message: "SPZ (license plate) is required."}
	case e.id == 0 && len(items) == 0:
		verr = &ValidationError{Field: FieldItems, Message: "No items to save."}
	default:
		return nil
	}

	e.ui.Alert(verr.Message)
	e.ui.Focus(verr.Field)
	return verr
}

// destination 保存后的去向：新建回总览；编辑回到来源页，未知来源时进入查看页
func (e *Editor) destination() nav.Destination {
	if e.id == 0 {
		return nav.Destination{Page: nav.Overview}
	}
	if e.origin == OriginOverview {
		return nav.Destination{Page: nav.Overview}
	}
	return nav.Destination{Page: nav.View, ID: e.id}
}

func (e *Editor) render() {
	e.mu.Lock()
	v := View{
		Items:        append([]string{}, e.items...),
		DriverName:   e.driverName,
		LicensePlate: e.licensePlate,
	}
	unsaved := !slices.Equal(sortedCopy(e.items), sortedCopy(e.original))
	e.mu.Unlock()

	v.State = e.machine.current()
	v.SaveLabel = "Save"
	if unsaved {
		v.SaveLabel = "Save*"
	}
	e.ui.Render(v)
}

func (e *Editor) saveDraft() {
	if e.drafts == nil || e.id != 0 {
		return
	}
	if err := e.drafts.Save(e.Items()); err != nil {
		e.logger.Warn("Failed to save draft", zap.Error(err))
	}
}

func (e *Editor) clearDraft() {
	if e.drafts == nil {
		return
	}
	if err := e.drafts.Clear(); err != nil {
		e.logger.Warn("Failed to clear draft", zap.Error(err))
	}
}

func sortedCopy(items []string) []string {
	out := append([]string{}, items...)
	slices.Sort(out)
	return out
}

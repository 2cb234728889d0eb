package handler

import (
	"strings"

	"github.com/clagon/kakeibo-antigrav/internal/models"

	"gorm.io/gorm"
)

// fallbackCategoryName 分类名为空时落到的默认分类
const fallbackCategoryName = "未分類"

// categoryResolver 在一次导入内把（分类名, 收支类型）解析为分类 ID
// 首次调用时一次性加载全部分类到内存，之后同名分类直接命中缓存，
// 不存在的分类只会创建一次。缓存随本次导入结束一起丢弃，不跨请求共享
type categoryResolver struct {
	db    *gorm.DB
	cache map[string]string // "name\x00kind" -> category id
}

func newCategoryResolver(db *gorm.DB) *categoryResolver {
	return &categoryResolver{db: db}
}

func resolverKey(name, kind string) string {
	return name + "\x00" + kind
}

// Resolve 返回分类 ID，找不到时用默认图标和颜色新建一个
func (r *categoryResolver) Resolve(name, kind string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = fallbackCategoryName
	}

	if r.cache == nil {
		var existing []models.Category
		if err := r.db.Find(&existing).Error; err != nil {
			return "", err
		}
		r.cache = make(map[string]string, len(existing))
		for _, c := range existing {
			r.cache[resolverKey(c.Name, c.Kind)] = c.ID
		}
	}

	if id, ok := r.cache[resolverKey(name, kind)]; ok {
		return id, nil
	}

	cat := models.Category{
		Name:  name,
		Kind:  kind,
		Icon:  "circle",
		Color: "#94a3b8",
	}
	if err := r.db.Create(&cat).Error; err != nil {
		return "", err
	}
	r.cache[resolverKey(name, kind)] = cat.ID
	return cat.ID, nil
}

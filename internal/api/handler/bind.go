package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/KoushikCodesWebpages/SappBackend/internal/api/middleware"
	pkgerrors "github.com/KoushikCodesWebpages/SappBackend/pkg/errors"
	"github.com/KoushikCodesWebpages/SappBackend/pkg/response"
)

// RegisterValidatorTagNames 让校验错误使用 json / form 标签名作为字段名
func RegisterValidatorTagNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
}

func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		respondBindError(c, err)
		return false
	}
	return true
}

func bindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		respondBindError(c, err)
		return false
	}
	return true
}

// respondBindError 绑定错误 → 400（字段级）或 413
func respondBindError(c *gin.Context, err error) {
	if middleware.IsBodyTooLarge(err) {
		middleware.RejectBodyTooLarge(c)
		return
	}
	if fe, ok := firstFieldError(err); ok {
		response.FromError(c, pkgerrors.ErrInvalidParams.
			WithMessage("%s", describeFieldError(fe)).
			WithField(fe.Field()))
		return
	}
	response.FromError(c, pkgerrors.ErrInvalidParams.WithMessage("请求格式无效"))
}

func firstFieldError(err error) (validator.FieldError, bool) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0], true
	}
	// 数组请求体逐元素校验，返回 SliceValidationError
	var serr binding.SliceValidationError
	if errors.As(err, &serr) {
		for _, e := range serr {
			if fe, ok := firstFieldError(e); ok {
				return fe, true
			}
		}
	}
	return nil, false
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_with":
		return fmt.Sprintf("%s 不能为空", fe.Field())
	case "max":
		return fmt.Sprintf("%s 超出最大长度 %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s 小于最小值 %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s 不能小于 %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s 只能是 %s 之一", fe.Field(), fe.Param())
	case "datetime":
		return fmt.Sprintf("%s 格式应为 YYYY-MM-DD", fe.Field())
	default:
		return fmt.Sprintf("%s 校验失败（%s）", fe.Field(), fe.Tag())
	}
}

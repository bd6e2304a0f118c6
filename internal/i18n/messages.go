package i18n

var catalog = map[string]map[string]string{
	LocaleZH: {
		"error.bad_request":            "请求参数错误",
		"error.unauthorized":           "未登录或登录已过期",
		"error.forbidden":              "无权访问",
		"error.not_found":              "资源不存在",
		"error.conflict":               "资源状态冲突",
		"error.invalid_transition":     "非法的状态流转",
		"error.internal":               "服务器内部错误",
		"error.too_many_requests":      "请求过于频繁，请 %d 秒后重试",
		"error.jwt_secret_missing":     "JWT 密钥未配置",
		"error.auth_header_missing":    "缺少认证头",
		"error.auth_header_invalid":    "认证头格式错误",
		"error.token_invalid":          "登录凭证无效",
		"error.token_revoked":          "登录凭证已失效",
		"error.login_failed":           "账号或密码错误",
		"error.staff_disabled":         "账号已停用",
		"error.tenant_not_found":       "门店不存在",
		"error.captcha_required":       "请先完成验证码",
		"error.captcha_invalid":        "验证码错误",
		"error.captcha_config_invalid": "验证码配置错误",
		"error.token_format_invalid":   "访问令牌格式错误",
		"error.table_id_invalid":       "桌台 ID 无效",
		"error.order_id_invalid":       "订单 ID 无效",
		"error.token_id_invalid":       "令牌 ID 无效",
		"error.staff_id_invalid":       "员工 ID 无效",
		"error.context_type_invalid":   "上下文数据类型错误",
		"error.websocket_upgrade":      "实时连接建立失败",
	},
	LocaleEN: {
		"error.bad_request":            "Invalid request",
		"error.unauthorized":           "Not signed in or session expired",
		"error.forbidden":              "Forbidden",
		"error.not_found":              "Resource not found",
		"error.conflict":               "Resource state conflict",
		"error.invalid_transition":     "Invalid status transition",
		"error.internal":               "Internal server error",
		"error.too_many_requests":      "Too many requests, retry in %d seconds",
		"error.jwt_secret_missing":     "JWT secret is not configured",
		"error.auth_header_missing":    "Missing authorization header",
		"error.auth_header_invalid":    "Malformed authorization header",
		"error.token_invalid":          "Invalid credentials token",
		"error.token_revoked":          "Credentials token revoked",
		"error.login_failed":           "Wrong username or password",
		"error.staff_disabled":         "Account disabled",
		"error.tenant_not_found":       "Restaurant not found",
		"error.captcha_required":       "Captcha required",
		"error.captcha_invalid":        "Wrong captcha",
		"error.captcha_config_invalid": "Captcha misconfigured",
		"error.token_format_invalid":   "Malformed access token",
		"error.table_id_invalid":       "Invalid table id",
		"error.order_id_invalid":       "Invalid order id",
		"error.token_id_invalid":       "Invalid token id",
		"error.staff_id_invalid":       "Invalid staff id",
		"error.context_type_invalid":   "Invalid context value type",
		"error.websocket_upgrade":      "Realtime connection failed",
	},
	LocalePT: {
		"error.bad_request":            "Requisição inválida",
		"error.unauthorized":           "Sessão expirada ou ausente",
		"error.forbidden":              "Acesso negado",
		"error.not_found":              "Recurso não encontrado",
		"error.conflict":               "Conflito de estado do recurso",
		"error.invalid_transition":     "Transição de status inválida",
		"error.internal":               "Erro interno do servidor",
		"error.too_many_requests":      "Muitas requisições, tente novamente em %d segundos",
		"error.login_failed":           "Usuário ou senha incorretos",
		"error.staff_disabled":         "Conta desativada",
		"error.tenant_not_found":       "Restaurante não encontrado",
		"error.captcha_required":       "Captcha obrigatório",
		"error.captcha_invalid":        "Captcha incorreto",
		"error.token_format_invalid":   "Token de acesso malformado",
		"error.table_id_invalid":       "ID de mesa inválido",
		"error.order_id_invalid":       "ID de pedido inválido",
		"error.auth_header_missing":    "Cabeçalho Authorization ausente",
		"error.auth_header_invalid":    "Cabeçalho Authorization malformado",
		"error.token_invalid":          "Credencial inválida",
		"error.token_revoked":          "Credencial revogada",
	},
}

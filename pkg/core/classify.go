package core

import (
	"errors"
	"strings"
)

// ErrorKind identifies the category of an execution failure. The string
// values are stable wire identifiers used in step errors, persisted history
// records and the HTTP API.
type ErrorKind string

const (
	// Element interaction failures.
	KindElementNotFound        ErrorKind = "ELEMENT_NOT_FOUND"
	KindElementNotVisible      ErrorKind = "ELEMENT_NOT_VISIBLE"
	KindElementNotInteractable ErrorKind = "ELEMENT_NOT_INTERACTABLE"

	// Timing failures.
	KindTimeout     ErrorKind = "TIMEOUT"
	KindWaitTimeout ErrorKind = "WAIT_TIMEOUT"

	// Navigation failures.
	KindNavigationError ErrorKind = "NAVIGATION_ERROR"
	KindPageLoadError   ErrorKind = "PAGE_LOAD_ERROR"

	// Browser and debugging protocol failures.
	KindBrowserCrash         ErrorKind = "BROWSER_CRASH"
	KindBrowserClosed        ErrorKind = "BROWSER_CLOSED"
	KindDebugConnectionError ErrorKind = "DEBUG_CONNECTION_ERROR"
	KindDebugDisconnected    ErrorKind = "DEBUG_DISCONNECTED"

	// Network failures.
	KindNetworkError ErrorKind = "NETWORK_ERROR"
	KindSSLError     ErrorKind = "SSL_ERROR"
	KindDNSError     ErrorKind = "DNS_ERROR"

	// Permission failures.
	KindPermissionError ErrorKind = "PERMISSION_ERROR"
	KindFileAccessError ErrorKind = "FILE_ACCESS_ERROR"

	// Validation failures.
	KindValidationError ErrorKind = "VALIDATION_ERROR"
	KindDSLParseError   ErrorKind = "DSL_PARSE_ERROR"
	KindSelectorInvalid ErrorKind = "SELECTOR_INVALID"

	// Process lifecycle failures.
	KindManualStop     ErrorKind = "MANUAL_STOP"
	KindProcessTimeout ErrorKind = "PROCESS_TIMEOUT"
	KindProcessKilled  ErrorKind = "PROCESS_KILLED"

	// Assertion failures.
	KindAssertionFailed ErrorKind = "ASSERTION_FAILED"

	// Script failures.
	KindScriptError     ErrorKind = "SCRIPT_ERROR"
	KindJavaScriptError ErrorKind = "JAVASCRIPT_ERROR"

	KindUnknown ErrorKind = "UNKNOWN"
)

type classifyRule struct {
	keywords []string
	kind     ErrorKind
}

// classifyRules is scanned in order and the first keyword hit wins, so
// specific patterns must stay ahead of generic ones. The trailing
// selector/locator/element rule is the catch-all for element failures.
var classifyRules = []classifyRule{
	// Explicit stop signals before anything else.
	{[]string{"manually stopped", "user cancelled", "manual stop", "手动停止", "用户取消"}, KindManualStop},
	{[]string{"process timeout", "execution timeout", "进程超时", "执行超时"}, KindProcessTimeout},
	{[]string{"killed", "terminated", "sigterm", "sigkill"}, KindProcessKilled},

	{[]string{"element is not visible", "not visible", "visibility"}, KindElementNotVisible},
	{[]string{"element is not interactable", "not interactable", "intercept", "obscured"}, KindElementNotInteractable},
	{[]string{"no element found", "element not found", "waiting for selector", "locator resolved to"}, KindElementNotFound},

	{[]string{"timeout", "timed out", "timeouterror", "exceeded"}, KindTimeout},
	{[]string{"waiting for", "wait_for"}, KindWaitTimeout},

	{[]string{"cdp", "devtools", "debugger"}, KindDebugConnectionError},
	{[]string{"target closed", "target crashed", "browser closed", "page closed", "context closed"}, KindBrowserClosed},
	{[]string{"browser crash", "browser disconnected", "crashed"}, KindBrowserCrash},
	{[]string{"disconnected", "connection closed"}, KindDebugDisconnected},

	// Certificate and DNS failures must outrank the generic network rule.
	{[]string{"ssl", "certificate", "err_cert"}, KindSSLError},
	{[]string{"dns", "name not resolved", "getaddrinfo", "err_name_not_resolved"}, KindDNSError},
	{[]string{"net::err_", "network error", "failed to fetch", "fetch failed", "connection refused"}, KindNetworkError},

	{[]string{"navigation", "goto", "page.goto"}, KindNavigationError},
	{[]string{"page load", "load event"}, KindPageLoadError},

	{[]string{"permission denied", "access denied", "forbidden", "403"}, KindPermissionError},
	{[]string{"file not found", "no such file", "enoent"}, KindFileAccessError},

	{[]string{"invalid selector syntax", "syntax error in selector"}, KindSelectorInvalid},
	{[]string{"invalid json", "json parse", "jsondecodeerror"}, KindDSLParseError},
	{[]string{"validation error", "valueerror"}, KindValidationError},

	{[]string{"javascript error", "script error", "evaluation failed", "executioncontextdestroyed"}, KindJavaScriptError},
	{[]string{"script", "evaluate"}, KindScriptError},

	{[]string{"assertion", "assert", "expected"}, KindAssertionFailed},

	{[]string{"selector", "locator", "element"}, KindElementNotFound},
}

// Classify maps a raw error message to the most specific matching kind.
func Classify(message string) ErrorKind {
	lowered := strings.ToLower(message)
	for _, rule := range classifyRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lowered, keyword) {
				return rule.kind
			}
		}
	}
	return KindUnknown
}

// ClassifyError resolves the kind of an arbitrary error. Errors that already
// carry a kind keep it; everything else is classified from its message.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Kind
	}
	return Classify(err.Error())
}

// FormatStepError renders the wire form "[KIND] detail" stored on failed
// step results.
func FormatStepError(kind ErrorKind, detail string) string {
	return "[" + string(kind) + "] " + detail
}

// SplitKindPrefix parses a "[KIND] detail" error string. It accepts any
// upper snake-case token so records written by newer versions still parse.
func SplitKindPrefix(s string) (kind string, detail string, ok bool) {
	if len(s) < 3 || s[0] != '[' {
		return "", s, false
	}
	end := strings.IndexByte(s, ']')
	if end < 2 {
		return "", s, false
	}
	token := s[1:end]
	for _, c := range token {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') && c != '_' {
			return "", s, false
		}
	}
	return token, strings.TrimPrefix(s[end+1:], " "), true
}

// DisplayInfo describes how an error kind is presented in the console UI.
type DisplayInfo struct {
	Label       string `json:"label"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

var displayInfoByKind = map[ErrorKind]DisplayInfo{
	KindElementNotFound:        {Label: "元素未找到", Description: "页面上未找到指定的元素", Color: "orange"},
	KindElementNotVisible:      {Label: "元素不可见", Description: "元素存在但不可见", Color: "orange"},
	KindElementNotInteractable: {Label: "元素不可交互", Description: "元素被遮挡或禁用", Color: "orange"},
	KindTimeout:                {Label: "超时", Description: "操作超时未完成", Color: "red"},
	KindWaitTimeout:            {Label: "等待超时", Description: "等待元素或条件超时", Color: "red"},
	KindNavigationError:        {Label: "导航错误", Description: "页面导航失败", Color: "red"},
	KindPageLoadError:          {Label: "页面加载失败", Description: "页面未能正常加载", Color: "red"},
	KindBrowserCrash:           {Label: "浏览器崩溃", Description: "浏览器进程崩溃", Color: "red"},
	KindBrowserClosed:          {Label: "浏览器已关闭", Description: "浏览器或页面意外关闭", Color: "red"},
	KindDebugConnectionError:   {Label: "调试连接错误", Description: "无法连接到浏览器调试端口", Color: "red"},
	KindDebugDisconnected:      {Label: "调试连接断开", Description: "与浏览器的连接断开", Color: "red"},
	KindNetworkError:           {Label: "网络错误", Description: "网络请求失败", Color: "red"},
	KindSSLError:               {Label: "SSL错误", Description: "SSL证书验证失败", Color: "red"},
	KindDNSError:               {Label: "DNS错误", Description: "域名解析失败", Color: "red"},
	KindPermissionError:        {Label: "权限错误", Description: "无权限执行操作", Color: "volcano"},
	KindFileAccessError:        {Label: "文件访问错误", Description: "无法访问文件", Color: "volcano"},
	KindValidationError:        {Label: "验证错误", Description: "参数验证失败", Color: "gold"},
	KindDSLParseError:          {Label: "DSL解析错误", Description: "流程配置格式错误", Color: "gold"},
	KindSelectorInvalid:        {Label: "选择器无效", Description: "CSS/XPath选择器格式错误", Color: "gold"},
	KindManualStop:             {Label: "手动停止", Description: "用户手动停止了执行", Color: "blue"},
	KindProcessTimeout:         {Label: "进程超时", Description: "执行进程超时被终止", Color: "red"},
	KindProcessKilled:          {Label: "进程终止", Description: "执行进程被强制终止", Color: "red"},
	KindAssertionFailed:        {Label: "断言失败", Description: "验证条件未满足", Color: "orange"},
	KindScriptError:            {Label: "脚本错误", Description: "脚本执行出错", Color: "red"},
	KindJavaScriptError:        {Label: "JavaScript错误", Description: "页面JavaScript执行错误", Color: "red"},
	KindUnknown:                {Label: "未知错误", Description: "无法识别的错误类型", Color: "default"},
}

// DisplayInfoFor returns UI metadata for a kind, falling back to the
// unknown entry for kinds this build does not know about.
func DisplayInfoFor(kind ErrorKind) DisplayInfo {
	if info, ok := displayInfoByKind[kind]; ok {
		return info
	}
	return displayInfoByKind[KindUnknown]
}

// AllKinds lists every known kind in display order.
func AllKinds() []ErrorKind {
	return []ErrorKind{
		KindElementNotFound, KindElementNotVisible, KindElementNotInteractable,
		KindTimeout, KindWaitTimeout,
		KindNavigationError, KindPageLoadError,
		KindBrowserCrash, KindBrowserClosed, KindDebugConnectionError, KindDebugDisconnected,
		KindNetworkError, KindSSLError, KindDNSError,
		KindPermissionError, KindFileAccessError,
		KindValidationError, KindDSLParseError, KindSelectorInvalid,
		KindManualStop, KindProcessTimeout, KindProcessKilled,
		KindAssertionFailed,
		KindScriptError, KindJavaScriptError,
		KindUnknown,
	}
}

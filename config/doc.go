// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

// Package config 提供 agentroom 的配置加载与热重载。
//
// 加载顺序为默认值、YAML 文件、.env 文件、AGENTROOM_ 前缀的环境变量，
// 最后由 validator 校验。Agent 名单与 LLM provider 只能写在 YAML 中，
// Reloader 监听该文件并把名单变化通知给 serve 命令。
package config

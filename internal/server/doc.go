// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 管理 agentroom 的 HTTP 服务器生命周期。

serve 命令启动两个 Manager：一个承载房间 API 与 WebSocket 事件流，
一个只暴露 Prometheus /metrics。

# 核心类型

  - Manager：包装 net/http.Server，非阻塞 Start、优雅 Shutdown、
    异步错误通道，以及 Wait(ctx) 阻塞到信号或异常退出。
  - Config：监听地址与超时。由 config.ServerConfig.HTTPServer 生成。

Addr 在 Start 之后返回真实监听地址，":0" 随机端口在测试中可直接使用。
被劫持的 WebSocket 连接不受 http.Server.Shutdown 管理，通过 OnShutdown
注册回调来关闭事件订阅。
*/
package server

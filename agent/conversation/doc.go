// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 conversation 实现多 Agent 聊天室的编排核心：谁下一个发言、何时把
话筒交还给用户，以及群组的持久化服务层。

# 概述

一个 Group 由一组 Responder 与一段共享的对话历史组成。用户以保留名
types.UserAlias 参与对话，但从不参与投票；用户"获胜"即表示本轮编排
结束、等待用户输入。

# 编排策略

  - turn_taking（默认）：Chat 每轮先由 RolePlay 投票选出下一位发言者，
    胜者回复一条消息并追加到历史，直到用户胜出、轮数用尽或 ctx 取消
  - broadcast：每轮所有 Agent（发送者除外）并发回复，Step 在发送者
    不是用户时加入 ASK_USER 占位，再由 MaxVote 选出一条追加

投票按花名册顺序依次进行；越界下标、-1 与出错都视为弃权。平票时
花名册或候选中靠前者获胜，无人得票则默认第一位（即用户）。

# 服务层

Manager 以群组名加锁，负责 CRUD、Send / Step / RolePlay / MaxVote、
删除与重发消息。群组只保存 Agent alias，每次使用时通过
agent.Directory 解析，已删除的 alias 被静默跳过但保留在存储中。
取消时已追加的消息仍会写回存储。

# 可观测性

Observer 接收消息追加、投票、Agent 失败与编排结束事件，供指标和
事件推送使用；每个编排入口都会创建 OpenTelemetry span。
*/
package conversation
